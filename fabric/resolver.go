package fabric

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCacheTTL is how long positive lookup results are kept.
	DefaultCacheTTL = 60 * time.Second

	// DefaultLookupTimeout bounds a single DNS query.
	DefaultLookupTimeout = 5 * time.Second
)

// ResolverConfig contains configuration options for a Resolver.
type ResolverConfig struct {
	// Server is an optional DNS server address ("host:port"). When empty
	// the system resolver configuration is used.
	Server string
	// CacheTTL is the lifetime of cached positive results. Default is 60s.
	CacheTTL time.Duration
	// LookupTimeout bounds individual lookups. Default is 5s.
	LookupTimeout time.Duration
}

// DefaultResolverConfig returns the default resolver configuration.
func DefaultResolverConfig() *ResolverConfig {
	return &ResolverConfig{
		CacheTTL:      DefaultCacheTTL,
		LookupTimeout: DefaultLookupTimeout,
	}
}

// cacheEntry holds a cached lookup result until expiry.
type cacheEntry struct {
	ips     []net.IP
	expires time.Time
}

// Resolver performs DNS lookups with IDNA normalization and a TTL cache
// for host lookups.
type Resolver struct {
	res    *net.Resolver
	config *ResolverConfig

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewResolver creates a Resolver. A nil config selects defaults.
func NewResolver(config *ResolverConfig) *Resolver {
	if config == nil {
		config = DefaultResolverConfig()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.LookupTimeout == 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}

	res := &net.Resolver{}
	if config.Server != "" {
		server := config.Server
		res = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				d := net.Dialer{Timeout: config.LookupTimeout}
				return d.DialContext(ctx, network, server)
			},
		}
	}

	return &Resolver{
		res:    res,
		config: config,
		cache:  make(map[string]cacheEntry),
	}
}

// normalize converts a hostname to its IDNA/punycode lookup form.
func normalize(host string) (string, error) {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("normalizing %q: %w", host, err)
	}

	return ascii, nil
}

// LookupHost resolves host to its IP addresses, serving from cache when a
// fresh entry exists.
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]net.IP, error) {
	name, err := normalize(host)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if e, ok := r.cache[name]; ok && time.Now().Before(e.expires) {
		ips := e.ips
		r.mu.Unlock()
		return ips, nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	addrs, err := r.res.LookupIPAddr(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", name, err)
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}

	r.mu.Lock()
	r.cache[name] = cacheEntry{ips: ips, expires: time.Now().Add(r.config.CacheTTL)}
	r.mu.Unlock()

	return ips, nil
}

// LookupHosts resolves several names concurrently. The result map holds an
// entry per successfully resolved name; the first failure aborts the batch.
func (r *Resolver) LookupHosts(ctx context.Context, hosts []string) (map[string][]net.IP, error) {
	var mu sync.Mutex
	out := make(map[string][]net.IP, len(hosts))

	eg, ctx := errgroup.WithContext(ctx)
	for _, h := range hosts {
		host := h
		eg.Go(func() error {
			ips, err := r.LookupHost(ctx, host)
			if err != nil {
				return err
			}

			mu.Lock()
			out[host] = ips
			mu.Unlock()

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// LookupAddr performs a reverse (PTR) lookup for addr.
func (r *Resolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	names, err := r.res.LookupAddr(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("reverse lookup %s: %w", addr, err)
	}

	return names, nil
}

// LookupMX returns the MX records of domain sorted by preference.
func (r *Resolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	name, err := normalize(domain)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	mx, err := r.res.LookupMX(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("mx lookup %s: %w", name, err)
	}

	return mx, nil
}

// LookupNS returns the NS records of domain.
func (r *Resolver) LookupNS(ctx context.Context, domain string) ([]*net.NS, error) {
	name, err := normalize(domain)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	ns, err := r.res.LookupNS(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ns lookup %s: %w", name, err)
	}

	return ns, nil
}

// LookupTXT returns the TXT records of domain.
func (r *Resolver) LookupTXT(ctx context.Context, domain string) ([]string, error) {
	name, err := normalize(domain)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	txt, err := r.res.LookupTXT(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("txt lookup %s: %w", name, err)
	}

	return txt, nil
}

// LookupSRV returns SRV records for service/proto under domain.
func (r *Resolver) LookupSRV(
	ctx context.Context,
	service, proto, domain string,
) (string, []*net.SRV, error) {
	name, err := normalize(domain)
	if err != nil {
		return "", nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	cname, srvs, err := r.res.LookupSRV(ctx, service, proto, name)
	if err != nil {
		return "", nil, fmt.Errorf("srv lookup %s: %w", name, err)
	}

	return cname, srvs, nil
}

// LookupCNAME returns the canonical name of host.
func (r *Resolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	name, err := normalize(host)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	cname, err := r.res.LookupCNAME(ctx, name)
	if err != nil {
		return "", fmt.Errorf("cname lookup %s: %w", name, err)
	}

	return cname, nil
}

// FlushCache drops all cached lookup results.
func (r *Resolver) FlushCache() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
}
