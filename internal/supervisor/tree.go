// Package supervisor runs loginguard's long-lived services under a suture
// supervisor tree so that a crashed service is restarted on its own.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/accelerated-industries/loginguard/internal/logging"
)

// TreeConfig holds supervisor tree configuration
type TreeConfig struct {
	// Failures tolerated before the supervisor backs off. Default: 5
	FailureThreshold float64
	// Rate at which failures decay, in seconds. Default: 30
	FailureDecay float64
	// Wait once the threshold is exceeded. Default: 15s
	FailureBackoff time.Duration
	// Maximum time a service gets to stop. Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the root supervisor and its two layers:
//   - guard: investigation sweeper and jail reaper
//   - api: HTTP server
//
// A crash in the HTTP layer never stops the sweeper, and the other way round.
type Tree struct {
	root   *suture.Supervisor
	guard  *suture.Supervisor
	api    *suture.Supervisor
	config TreeConfig
}

// NewTree creates the supervisor tree. Supervisor events are reported
// through logger.
func NewTree(logger *logging.Logger, config TreeConfig) *Tree {
	defaults := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = defaults.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	// MustHook has a pointer receiver
	handler := &sutureslog.Handler{Logger: logger.Slog()}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("loginguard", rootSpec)
	guard := suture.New("guard-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(guard)
	root.Add(api)

	return &Tree{
		root:   root,
		guard:  guard,
		api:    api,
		config: config,
	}
}

// AddGuardService adds a background maintenance service (sweeper, reaper)
func (t *Tree) AddGuardService(svc suture.Service) suture.ServiceToken {
	return t.guard.Add(svc)
}

// AddAPIService adds a service to the API layer
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is cancelled
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in its own goroutine. The returned channel
// receives the result once the tree stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
