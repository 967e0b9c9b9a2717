package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "rulebuilder",
	Subsystem: "api",
	Name:      "sessions_open",
	Help:      "Editing sessions currently open.",
})
