// Package main provides an example of using the join framework.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/joinframework/join"
	"github.com/joinframework/join/server"
)

// tcpConnectionFactory creates new TCP connections for the connection pool.
func tcpConnectionFactory(addr string) (join.PoolItem, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return conn, nil
}

// startServer initializes and starts the framed TCP server.
func startServer(addr string, logger zerolog.Logger) (*server.Server, error) {
	handler := server.HandlerFunc(func(_ *server.Conn, req []byte) ([]byte, error) {
		// reverse request data.
		out := make([]byte, len(req))
		for i := range req {
			out[len(req)-1-i] = req[i]
		}

		return out, nil
	})
	srv, err := server.New(addr, handler, &server.Config{
		Logger: join.NewZerologAdapter(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("server setup failed: %w", err)
	}

	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return srv, nil
}

// newBroker configures and starts a broker for the given server address.
func newBroker(addr string, logger zerolog.Logger) join.Broker {
	poolCap := uint32(5)
	adapter := join.NewZerologAdapter(logger)
	pools := join.NewPoolList(poolCap, tcpConnectionFactory, []string{addr}, adapter)
	numWorkers := 3

	config := &join.BrokerConfig{
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  5 * time.Second,
		QueueSize:    1000,
	}

	broker := join.NewBroker(pools, numWorkers, adapter, config)

	go func() {
		if err := broker.Start(); err != nil && err != join.ErrQuit {
			logger.Error().Err(err).Msg("broker failed")
		}
	}()

	return broker
}

// sendRequests performs concurrent client requests through the broker.
func sendRequests(broker join.Broker, logger zerolog.Logger, requests []string) {
	var wg sync.WaitGroup
	for _, reqStr := range requests {
		wg.Add(1)
		go func(requestPayload string) {
			defer wg.Done()

			reqData := []byte(requestPayload)
			logger.Info().Str("request", requestPayload).Msg("client sending")

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			respData, err := broker.SendContext(ctx, &reqData)
			if err != nil {
				logger.Error().Err(err).Str("request", requestPayload).Msg("client send failed")

				return
			}

			logger.Info().
				Str("request", requestPayload).
				Str("response", string(respData)).
				Msg("client received")
		}(reqStr)
	}

	logger.Info().Msg("client launched all requests")
	wg.Wait()
	logger.Info().Msg("client finished processing all responses")
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	addr := "localhost:3000"

	srv, err := startServer(addr, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("server start failed")
	}

	broker := newBroker(addr, logger)

	defer func() {
		if err := srv.Stop(); err != nil {
			logger.Error().Err(err).Msg("error stopping server")
		}
	}()
	defer broker.Close()

	sendRequests(broker, logger, []string{"hello", "world", "join test", "concurrent", "request"})

	time.Sleep(200 * time.Millisecond)
}
