package guard

import (
	"time"

	"github.com/accelerated-industries/loginguard/internal/logging"
	"github.com/accelerated-industries/loginguard/internal/metrics"
)

// ScriptDetector decides whether an attempt from an address is scripted
type ScriptDetector interface {
	IsScriptedLogin(address string) bool
}

// Jail stores temporary bans. Implementations must be safe for concurrent use.
type Jail interface {
	SendToJail(identifier string, sentence time.Duration)
	IsInJail(identifier string) bool
}

// Optional is a collaborator that may not be configured
type Optional[T any] struct {
	value   T
	present bool
}

// Some wraps a configured collaborator
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None marks a collaborator as not configured
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the collaborator and whether it is configured
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// Gate is what the login flow asks before it checks credentials
type Gate struct {
	detector Optional[ScriptDetector]
	jail     Optional[Jail]
	sentence time.Duration
	suffix   string
	logger   *logging.Logger
}

// NewGate creates a gate. sentence is how long a scripted client is jailed;
// suffix is appended to the client address to form its jail identifier.
func NewGate(detector Optional[ScriptDetector], jail Optional[Jail], sentence time.Duration, suffix string, logger *logging.Logger) *Gate {
	return &Gate{
		detector: detector,
		jail:     jail,
		sentence: sentence,
		suffix:   suffix,
		logger:   logger,
	}
}

// Identifier returns the jail identifier used for address
func (g *Gate) Identifier(address string) string {
	return address + g.suffix
}

// Check reports whether address is currently banned, jailing it first if
// this attempt looks scripted. The answer always comes from the jail, so
// bans from other sources count too. Without a detector or a jail the gate
// lets everything through.
func (g *Gate) Check(address string) bool {
	detector, hasDetector := g.detector.Get()
	jail, hasJail := g.jail.Get()
	if !hasDetector || !hasJail {
		return false
	}

	identifier := g.Identifier(address)

	scripted := detector.IsScriptedLogin(address)
	g.logger.Debug("guard", "brute_force_check", map[string]interface{}{
		"client_ip": address,
		"scripted":  scripted,
	})

	if scripted {
		jail.SendToJail(identifier, g.sentence)
		metrics.Jailings.WithLabelValues("scripted_login").Inc()
		g.logger.Info("guard", "client_jailed", map[string]interface{}{
			"client_ip":  address,
			"identifier": identifier,
			"sentence":   g.sentence.String(),
		})
	}

	banned := jail.IsInJail(identifier)
	if banned {
		metrics.GateDecisions.WithLabelValues("banned").Inc()
	} else {
		metrics.GateDecisions.WithLabelValues("allowed").Inc()
	}
	return banned
}
