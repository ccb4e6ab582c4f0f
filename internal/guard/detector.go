package guard

import (
	"time"

	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/logging"
	"github.com/accelerated-industries/loginguard/internal/metrics"
)

// Detector classifies login attempts as scripted or human by the time since
// the same address last tried
type Detector struct {
	store     *InvestigationStore
	clock     clock.Clock
	threshold time.Duration
	logger    *logging.Logger
}

// NewDetector creates a detector. threshold is the shortest gap between two
// attempts a human could plausibly produce.
func NewDetector(store *InvestigationStore, clk clock.Clock, threshold time.Duration, logger *logging.Logger) *Detector {
	return &Detector{
		store:     store,
		clock:     clk,
		threshold: threshold,
		logger:    logger,
	}
}

// IsScriptedLogin records an attempt from address and reports whether it
// followed the previous attempt too quickly to be human. A first attempt is
// always human. Scripted attempts open or extend the address's investigation.
func (d *Detector) IsScriptedLogin(address string) bool {
	scripted, now, investigations := d.store.observe(address, d.clock, d.threshold)

	classification := "human"
	if scripted {
		classification = "scripted"
	}
	metrics.LoginAttemptsClassified.WithLabelValues(classification).Inc()

	if d.logger.Enabled("trace") {
		d.logger.Trace("guard", "attempt_classified", map[string]interface{}{
			"client_ip":      address,
			"classification": classification,
			"at":             now,
			"investigations": investigations,
		})
	}

	return scripted
}
