package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/accelerated-industries/loginguard/internal/auth"
	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/config"
	"github.com/accelerated-industries/loginguard/internal/guard"
	"github.com/accelerated-industries/loginguard/internal/jail"
	"github.com/accelerated-industries/loginguard/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	jail           *jail.Jail
	investigations *guard.InvestigationStore
	authManager    *auth.AuthManager
	config         *config.Config
	clock          clock.Clock
	logger         *logging.Logger
	version        string
}

// Config holds server configuration
type Config struct {
	Version string
	Clock   clock.Clock
	Logger  *logging.Logger
}

// NewServer creates a new HTTP server reporting on j and investigations
func NewServer(j *jail.Jail, investigations *guard.InvestigationStore, cfg Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Server{
		jail:           j,
		investigations: investigations,
		authManager:    nil, // Set separately via SetAuthManager
		config:         config.Default(),
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		version:        cfg.Version,
	}
}

// SetAuthManager sets the authentication manager
func (s *Server) SetAuthManager(authManager *auth.AuthManager) {
	s.authManager = authManager
}

// SetConfig sets the configuration
func (s *Server) SetConfig(cfg *config.Config) {
	s.config = cfg
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Public endpoints
	r.Post("/auth/login", s.handleLogin)
	r.Get("/version", s.handleVersion)
	r.Get("/health", s.handleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.RequireAuth)
		r.Get("/inmates", s.handleListInmates)
		r.Delete("/inmates/{identifier}", s.handleReleaseInmate)
		r.Get("/investigations", s.handleListInvestigations)
		r.Get("/sessions", s.handleListSessions)
		r.Delete("/sessions/{tokenID}", s.handleRevokeSession)
		r.Delete("/users/{username}/sessions", s.handleRevokeUserSessions)
	})

	if s.config.Metrics.Enabled {
		r.With(s.RequireAuth).Handle(s.config.Metrics.Path, promhttp.Handler())
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "invalid_method",
			"Method not allowed for this endpoint.", "use_correct_method",
			map[string]interface{}{
				"method_used": r.Method,
			})
	})

	return r
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully. It implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Server.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("server", "listening", map[string]interface{}{
		"address":         srv.Addr,
		"auth_enabled":    s.config.Auth.Enabled,
		"metrics_enabled": s.config.Metrics.Enabled,
	})

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		s.logger.Info("server", "stopped", nil)
		return ctx.Err()
	}
}

func (s *Server) String() string {
	return "http-server"
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      s.clock.Now().Format(time.RFC3339),
		"service":        "loginguard",
		"investigations": s.investigations.Count(),
		"inmates":        len(s.jail.Inmates()),
	})
}

// handleVersion returns version information
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "loginguard",
		"version": s.version,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
