package editor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Update outcomes recorded on updatesTotal.
const (
	outcomeApplied   = "applied"
	outcomeUnchanged = "unchanged"
	outcomeDropped   = "dropped"
	outcomeFailed    = "failed"
)

var updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rulebuilder",
	Subsystem: "editor",
	Name:      "updates_total",
	Help:      "Controller writes by outcome.",
}, []string{"outcome"})
