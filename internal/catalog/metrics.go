package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded on fetchTotal.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeEmpty    = "empty"
	outcomeCacheHit = "cache_hit"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rulebuilder",
		Subsystem: "catalog",
		Name:      "fetch_total",
		Help:      "Catalog loads by catalog and outcome.",
	}, []string{"catalog", "outcome"})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rulebuilder",
		Subsystem: "catalog",
		Name:      "fallback_total",
		Help:      "Operator lookups answered from the default operator table.",
	}, []string{"data_type"})
)
