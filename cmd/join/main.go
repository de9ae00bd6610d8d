// Command join is the framework's command line frontend: a framed TCP
// echo server, a broker-backed request client, DNS resolution and digest
// helpers.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joinframework/join"
	"github.com/joinframework/join/crypto"
	"github.com/joinframework/join/fabric"
	"github.com/joinframework/join/server"
)

var version = "dev"

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "join",
		Short:         "join network framework toolbox",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(logger),
		requestCmd(logger),
		resolveCmd(),
		digestCmd(),
	)

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd(logger zerolog.Logger) *cobra.Command {
	var (
		configPath string
		addr       string
		mode       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run a framed TCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := defaultServeConfig()
			if configPath != "" {
				var err error
				cfg, err = loadServeConfig(configPath)
				if err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("mode") {
				cfg.Mode = mode
			}

			handler, err := handlerForMode(cfg.Mode)
			if err != nil {
				return err
			}

			srvConfig, err := cfg.serverConfig()
			if err != nil {
				return err
			}
			srvConfig.Logger = join.NewZerologAdapter(logger)

			srv, err := server.New(cfg.Addr, handler, srvConfig)
			if err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				return err
			}
			logger.Info().Stringer("addr", srv.Addr()).Str("mode", cfg.Mode).Msg("server started")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			logger.Info().Msg("shutting down")

			return srv.Stop()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().StringVarP(&addr, "addr", "a", ":9000", "listen address")
	cmd.Flags().StringVarP(&mode, "mode", "m", "echo", "handler mode: echo or reverse")

	return cmd
}

func handlerForMode(mode string) (server.Handler, error) {
	switch mode {
	case "echo":
		return server.HandlerFunc(func(_ *server.Conn, req []byte) ([]byte, error) {
			out := make([]byte, len(req))
			copy(out, req)

			return out, nil
		}), nil
	case "reverse":
		return server.HandlerFunc(func(_ *server.Conn, req []byte) ([]byte, error) {
			out := make([]byte, len(req))
			for i := range req {
				out[len(req)-1-i] = req[i]
			}

			return out, nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func requestCmd(logger zerolog.Logger) *cobra.Command {
	var (
		addr    string
		count   int
		workers int
		poolCap uint32
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "request <payload>",
		Short: "send framed requests through the broker",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			factory := func(a string) (join.PoolItem, error) {
				return net.DialTimeout("tcp", a, 5*time.Second)
			}

			adapter := join.NewZerologAdapter(logger)
			pools := join.NewPoolList(poolCap, factory, []string{addr}, adapter)
			broker := join.NewBroker(pools, workers, adapter, nil)

			go func() {
				if err := broker.Start(); err != nil {
					logger.Error().Err(err).Msg("broker stopped")
				}
			}()
			defer broker.Close()

			eg := errgroup.Group{}
			eg.SetLimit(workers)
			start := time.Now()

			for i := 0; i < count; i++ {
				i := i
				eg.Go(func() error {
					req := []byte(fmt.Sprintf("%s_%d", args[0], i))

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					defer cancel()

					resp, err := broker.SendContext(ctx, &req)
					if err != nil {
						return err
					}
					logger.Info().Str("response", string(resp)).Msg("received")

					return nil
				})
			}

			if err := eg.Wait(); err != nil {
				return err
			}
			logger.Info().Dur("elapsed", time.Since(start)).Int("count", count).Msg("done")

			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:9000", "server address")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of requests")
	cmd.Flags().IntVarP(&workers, "workers", "w", 3, "broker worker count")
	cmd.Flags().Uint32Var(&poolCap, "pool", 5, "connection pool capacity")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "per-request timeout")

	return cmd
}

func resolveCmd() *cobra.Command {
	var (
		dnsServer string
		qtype     string
	)

	cmd := &cobra.Command{
		Use:   "resolve <name>...",
		Short: "resolve DNS names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := fabric.NewResolver(&fabric.ResolverConfig{Server: dnsServer})
			ctx := cmd.Context()

			for _, name := range args {
				switch strings.ToLower(qtype) {
				case "host":
					ips, err := res.LookupHost(ctx, name)
					if err != nil {
						return err
					}
					for _, ip := range ips {
						fmt.Printf("%s\t%s\n", name, ip)
					}
				case "mx":
					mxs, err := res.LookupMX(ctx, name)
					if err != nil {
						return err
					}
					for _, mx := range mxs {
						fmt.Printf("%s\t%d %s\n", name, mx.Pref, mx.Host)
					}
				case "ns":
					nss, err := res.LookupNS(ctx, name)
					if err != nil {
						return err
					}
					for _, ns := range nss {
						fmt.Printf("%s\t%s\n", name, ns.Host)
					}
				case "txt":
					txts, err := res.LookupTXT(ctx, name)
					if err != nil {
						return err
					}
					for _, txt := range txts {
						fmt.Printf("%s\t%q\n", name, txt)
					}
				case "addr":
					names, err := res.LookupAddr(ctx, name)
					if err != nil {
						return err
					}
					for _, n := range names {
						fmt.Printf("%s\t%s\n", name, n)
					}
				case "cname":
					cname, err := res.LookupCNAME(ctx, name)
					if err != nil {
						return err
					}
					fmt.Printf("%s\t%s\n", name, cname)
				default:
					return fmt.Errorf("unknown query type %q", qtype)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&dnsServer, "server", "s", "", "DNS server address (host:port)")
	cmd.Flags().StringVarP(&qtype, "type", "t", "host", "query type: host, mx, ns, txt, addr, cname")

	return cmd
}

func digestCmd() *cobra.Command {
	var alg string

	cmd := &cobra.Command{
		Use:   "digest [file]...",
		Short: "compute message digests of files or stdin",
		RunE: func(_ *cobra.Command, args []string) error {
			algorithm := crypto.Algorithm(strings.ToLower(alg))

			if len(args) == 0 {
				sum, err := crypto.SumReader(algorithm, io.Reader(os.Stdin))
				if err != nil {
					return err
				}
				fmt.Printf("%s  -\n", hex.EncodeToString(sum))

				return nil
			}

			for _, path := range args {
				sum, err := crypto.SumFile(algorithm, path)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s\n", hex.EncodeToString(sum), path)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&alg, "alg", "a", "sha256", "digest algorithm")

	return cmd
}
