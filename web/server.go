// Package web implements the HTTP/HTTPS service layer of the join
// framework: a graceful server wrapper with request logging and a small
// client with codec-aware helpers.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/joinframework/join/data"
	"github.com/rs/zerolog"
)

const (
	DefaultReadTimeout     = 10 * time.Second // default request read timeout.
	DefaultWriteTimeout    = 10 * time.Second // default response write timeout.
	DefaultIdleTimeout     = 60 * time.Second // default keep-alive idle timeout.
	DefaultShutdownTimeout = 5 * time.Second  // default graceful shutdown grace period.
)

// ServerConfig contains configuration options for a web server.
type ServerConfig struct {
	ReadTimeout     time.Duration // maximum duration for reading a request.
	WriteTimeout    time.Duration // maximum duration for writing a response.
	IdleTimeout     time.Duration // keep-alive idle duration.
	ShutdownTimeout time.Duration // grace period for Stop.
	TLSConfig       *tls.Config   // serve HTTPS when non-nil.
	Logger          zerolog.Logger
}

func (c *ServerConfig) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}

	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}

	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Server is an embeddable HTTP/HTTPS server with graceful shutdown.
type Server struct {
	address  string
	config   *ServerConfig
	mux      *http.ServeMux
	srv      *http.Server
	listener net.Listener
}

// NewServer creates a web server listening on address once started.
func NewServer(address string, config *ServerConfig) *Server {
	if config == nil {
		config = &ServerConfig{Logger: zerolog.Nop()}
	}
	config.applyDefaults()

	mux := http.NewServeMux()

	return &Server{
		address: address,
		config:  config,
		mux:     mux,
		srv: &http.Server{
			Handler:      logRequests(config.Logger, mux),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
			TLSConfig:    config.TLSConfig,
		},
	}
}

// Handle registers a handler for pattern on the server mux.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// HandleFunc registers a handler function for pattern on the server mux.
func (s *Server) HandleFunc(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, h)
}

// Start begins serving. It returns once the listener is bound; serving
// continues on a background goroutine.
func (s *Server) Start() error {
	var (
		ln  net.Listener
		err error
	)

	if s.config.TLSConfig != nil {
		ln, err = tls.Listen("tcp", s.address, s.config.TLSConfig)
	} else {
		ln, err = net.Listen("tcp", s.address)
	}
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.config.Logger.Error().Err(err).Msg("web server stopped")
		}
	}()

	return nil
}

// Addr returns the listener address once the server has started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Stop gracefully shuts the server down, waiting up to ShutdownTimeout
// for in-flight requests.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	return s.srv.Shutdown(ctx)
}

// logRequests emits one structured log line per request.
func logRequests(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WriteResponse encodes v with the codec and writes it with the given
// status code.
func WriteResponse(w http.ResponseWriter, codec data.Codec, status int, v any) error {
	body, err := codec.Marshal(v)
	if err != nil {
		http.Error(w, "encoding response failed", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", codec.ContentType())
	w.WriteHeader(status)
	_, err = w.Write(body)

	return err
}
