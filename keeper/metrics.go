package keeper

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opAdd    = "add"
	opUpdate = "update"
	opOracle = "oracle"

	resultApplied  = "applied"
	resultRejected = "rejected"
	resultExhaust  = "exhausted"
)

type metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	retries     *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reserves",
		Subsystem: "keeper",
		Name:      "transitions_total",
		Help:      "Ledger transitions submitted by the keeper, by outcome.",
	}, []string{"op", "result"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reserves",
		Subsystem: "keeper",
		Name:      "retries_total",
		Help:      "Transitions rebased and resubmitted after a transient rejection.",
	}, []string{"op"})
	registry.MustRegister(transitions, retries)
	return &metrics{
		registry:    registry,
		transitions: transitions,
		retries:     retries,
	}
}
