package guard

import (
	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/config"
	"github.com/accelerated-industries/loginguard/internal/logging"
)

// Guard bundles the pieces of the brute-force subsystem that share one store
type Guard struct {
	Store    *InvestigationStore
	Detector *Detector
	Gate     *Gate
	Sweeper  *Sweeper
}

// New wires a guard from validated configuration. A nil jail leaves the gate
// in pass-through mode.
func New(cfg config.GuardConfig, clk clock.Clock, jail Jail, logger *logging.Logger) *Guard {
	store := NewInvestigationStore()
	detector := NewDetector(store, clk, cfg.HumanPlausibilityThreshold, logger)

	jailOpt := None[Jail]()
	if jail != nil {
		jailOpt = Some(jail)
	}

	return &Guard{
		Store:    store,
		Detector: detector,
		Gate: NewGate(Some[ScriptDetector](detector), jailOpt,
			cfg.BanSentence, cfg.BanIdentifierSuffix, logger),
		Sweeper: NewSweeper(store, clk, cfg.InvestigationLifespan,
			cfg.HumanPlausibilityThreshold, cfg.SweepInterval, logger),
	}
}
