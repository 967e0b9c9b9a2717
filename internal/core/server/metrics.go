package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rulebuilder",
		Subsystem: "grpc",
		Name:      "requests_total",
		Help:      "EditorService calls by method and gRPC code.",
	}, []string{"method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rulebuilder",
		Subsystem: "grpc",
		Name:      "request_duration_seconds",
		Help:      "EditorService call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)
