package main

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/joinframework/join/server"
)

// serveConfig is the TOML-backed configuration of the serve command.
type serveConfig struct {
	Addr            string // listen address.
	Mode            string // handler mode: echo or reverse.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxConns        int
	MaxHandlers     int
	TLSCert         string // PEM certificate path; enables TLS with TLSKey.
	TLSKey          string // PEM key path.
}

type fileConfig struct {
	Addr            string `toml:"addr"`
	Mode            string `toml:"mode"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	MaxConns        int    `toml:"max_conns"`
	MaxHandlers     int    `toml:"max_handlers"`
	TLSCert         string `toml:"tls_cert"`
	TLSKey          string `toml:"tls_key"`
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		Addr: ":9000",
		Mode: "echo",
	}
}

// loadServeConfig reads a TOML file, applying only the keys present onto
// the defaults.
func loadServeConfig(path string) (serveConfig, error) {
	cfg := defaultServeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serveConfig{}, fmt.Errorf("load serve config: %w", err)
	}

	if meta.IsDefined("addr") {
		addr := strings.TrimSpace(raw.Addr)
		if addr != "" {
			cfg.Addr = addr
		}
	}

	if meta.IsDefined("mode") {
		cfg.Mode = strings.TrimSpace(raw.Mode)
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return serveConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return serveConfig{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}

	if meta.IsDefined("idle_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdleTimeout))
		if err != nil {
			return serveConfig{}, fmt.Errorf("parse idle_timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}

	if meta.IsDefined("shutdown_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownTimeout))
		if err != nil {
			return serveConfig{}, fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	if meta.IsDefined("max_conns") {
		cfg.MaxConns = raw.MaxConns
	}

	if meta.IsDefined("max_handlers") {
		cfg.MaxHandlers = raw.MaxHandlers
	}

	if meta.IsDefined("tls_cert") {
		cfg.TLSCert = strings.TrimSpace(raw.TLSCert)
	}

	if meta.IsDefined("tls_key") {
		cfg.TLSKey = strings.TrimSpace(raw.TLSKey)
	}

	return cfg, nil
}

// serverConfig builds the server.Config, loading the TLS key pair when
// configured.
func (c serveConfig) serverConfig() (*server.Config, error) {
	cfg := &server.Config{
		ReadTimeout:           c.ReadTimeout,
		WriteTimeout:          c.WriteTimeout,
		IdleTimeout:           c.IdleTimeout,
		ShutdownTimeout:       c.ShutdownTimeout,
		MaxConns:              c.MaxConns,
		MaxConcurrentHandlers: c.MaxHandlers,
	}

	if c.TLSCert != "" || c.TLSKey != "" {
		if c.TLSCert == "" || c.TLSKey == "" {
			return nil, fmt.Errorf("tls requires both tls_cert and tls_key")
		}

		cert, err := tls.LoadX509KeyPair(c.TLSCert, c.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("loading tls key pair: %w", err)
		}
		cfg.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	return cfg, nil
}
