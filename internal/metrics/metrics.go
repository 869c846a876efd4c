package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allocator metrics. Partition exhaustion is the one condition worth paging
// on; a climbing redraw rate is the early warning.
var (
	AllocatorDraws = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "allocator",
		Name:      "draws_total",
		Help:      "Partition draws attempted by the pillar allocator.",
	})

	AllocatorRedraws = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "allocator",
		Name:      "redraws_total",
		Help:      "Draws that landed on a full partition and were retried.",
	})

	AllocatorExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "allocator",
		Name:      "exhausted_total",
		Help:      "Allocations that failed after the full retry budget.",
	})

	CodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "verification",
		Name:      "codes_issued_total",
		Help:      "Verification codes issued, by purpose.",
	}, []string{"purpose"})

	CodesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "verification",
		Name:      "codes_consumed_total",
		Help:      "Verification codes consumed, by outcome (success or exhausted).",
	}, []string{"outcome"})

	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "reset",
		Name:      "tokens_issued_total",
		Help:      "Reset tokens issued, by purpose.",
	}, []string{"purpose"})

	TokensConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "reset",
		Name:      "tokens_consumed_total",
		Help:      "Reset tokens confirmed, by purpose.",
	}, []string{"purpose"})
)
