package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/whiteelite/relay/internal/metrics"
)

const (
	readHeaderTimeout = 10 * time.Second
	startupTimeout    = 5 * time.Second
)

// Server provides HTTP endpoints
type Server struct {
	logger  zerolog.Logger
	server  *http.Server
	gasless GaslessService
	metrics *metrics.Metrics
}

// NewServer creates a new Server instance. A nil gasless service keeps the
// gasless API mounted but refusing every action.
func NewServer(logger zerolog.Logger, port int, gasless GaslessService, m *metrics.Metrics) *Server {
	s := &Server{
		logger:  logger.With().Str("component", "api").Logger(),
		gasless: gasless,
		metrics: m,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("api server is nil")
	}

	startupChan := make(chan error, 1)

	go func() {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			startupChan <- fmt.Errorf("failed to bind to address %s: %w", s.server.Addr, err)
			return
		}

		startupChan <- nil
		s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")

		err = s.server.Serve(ln)
		switch err {
		case nil:
			s.logger.Info().Msg("API server stopped normally")
		case http.ErrServerClosed:
			s.logger.Info().Msg("API server closed gracefully")
		default:
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	select {
	case err := <-startupChan:
		return err
	case <-time.After(startupTimeout):
		return fmt.Errorf("server startup timeout")
	}
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
