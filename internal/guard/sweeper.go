package guard

import (
	"context"
	"time"

	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/logging"
	"github.com/accelerated-industries/loginguard/internal/metrics"
)

// Sweeper periodically discards expired investigations. It implements
// suture.Service and is meant to run under the supervisor for the life of
// the process.
type Sweeper struct {
	store     *InvestigationStore
	clock     clock.Clock
	lifespan  time.Duration
	threshold time.Duration
	interval  time.Duration
	logger    *logging.Logger
}

// NewSweeper creates a sweeper that runs every interval
func NewSweeper(store *InvestigationStore, clk clock.Clock, lifespan, threshold, interval time.Duration, logger *logging.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		clock:     clk,
		lifespan:  lifespan,
		threshold: threshold,
		interval:  interval,
		logger:    logger,
	}
}

// SweepOnce runs a single eviction pass and returns the evicted addresses
func (s *Sweeper) SweepOnce() []string {
	start := time.Now()
	evicted, remaining := s.store.Evict(s.clock.Now(), s.lifespan, s.threshold)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())

	if len(evicted) > 0 {
		metrics.InvestigationsEvicted.Add(float64(len(evicted)))
	}

	if remaining > 0 || len(evicted) > 0 {
		s.logger.Trace("guard", "investigations_reviewed", map[string]interface{}{
			"evicted":   evicted,
			"remaining": remaining,
		})
	}
	for _, address := range evicted {
		s.logger.Debug("guard", "investigation_closed", map[string]interface{}{
			"client_ip": address,
		})
	}

	return evicted
}

// Serve sweeps every interval until ctx is canceled. A sweep runs to
// completion under the store lock, so cancellation never leaves an
// eviction half applied.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("guard", "sweeper_started", map[string]interface{}{
		"interval": s.interval.String(),
		"lifespan": s.lifespan.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("guard", "sweeper_stopped", nil)
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// String implements fmt.Stringer; suture uses it to name the service
func (s *Sweeper) String() string {
	return "investigation-sweeper"
}
