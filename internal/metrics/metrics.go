package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttemptsClassified counts detector decisions, labelled "scripted" or "human"
	LoginAttemptsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginguard_attempts_classified_total",
			Help: "Login attempts classified by the timing detector",
		},
		[]string{"classification"},
	)

	// ActiveInvestigations is the number of addresses currently under investigation
	ActiveInvestigations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loginguard_active_investigations",
			Help: "Client addresses currently under investigation",
		},
	)

	InvestigationsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginguard_investigations_evicted_total",
			Help: "Investigations discarded by the sweeper after their lifespan",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loginguard_sweep_duration_seconds",
			Help:    "Duration of one investigation sweep",
			Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
		},
	)

	// GateDecisions counts gate results, labelled "banned" or "allowed"
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginguard_gate_decisions_total",
			Help: "Brute-force gate results",
		},
		[]string{"result"},
	)

	// Jailings counts sentences handed out, labelled by reason
	Jailings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginguard_jailings_total",
			Help: "Identifiers sent to jail",
		},
		[]string{"reason"},
	)

	Inmates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loginguard_inmates",
			Help: "Identifiers currently held in jail",
		},
	)

	InmatesReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginguard_inmates_released_total",
			Help: "Inmates removed from jail after serving their sentence",
		},
	)

	// Logins counts login outcomes: success, invalid_credentials, jailed
	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginguard_logins_total",
			Help: "Login requests by outcome",
		},
		[]string{"outcome"},
	)
)
