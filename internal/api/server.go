// Package api provides the HTTP surface for servicegate: a startup
// healthcheck, the aggregated configuration validation report, a masked
// configuration view, token encode/decode endpoints, and the audit
// trail.
//
// The server follows the standard lifecycle pattern:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: all methods are safe for concurrent use.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dkemmer/servicegate/internal/audit"
	"github.com/dkemmer/servicegate/internal/infrastructure/config"
	"github.com/dkemmer/servicegate/internal/infrastructure/logging"
	"github.com/dkemmer/servicegate/internal/security"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   *config.Config
	Logger   *logging.Logger
	Security *security.Manager
	Audit    audit.Repository
	Version  string
}

// Server is the servicegate HTTP API server. Create with New, start
// with Start.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	security *security.Manager
	audit    audit.Repository
	version  string
	server   *http.Server
}

// New creates an API server with the given dependencies.
// The server does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Security == nil {
		return nil, fmt.Errorf("security manager is required")
	}
	// Audit is optional: endpoints still work, activity just isn't recorded.

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		security: deps.Security,
		audit:    deps.Audit,
		version:  deps.Version,
	}, nil
}

// Start launches the HTTP listener in a background goroutine. The
// server is stopped with Close.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.API.Host, s.cfg.API.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the server, waiting up to ten seconds
// for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// recordAudit writes an audit event, logging rather than failing the
// request when the store is unavailable.
func (s *Server) recordAudit(ctx context.Context, event *audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record audit event", "action", event.Action, "error", err)
	}
}
