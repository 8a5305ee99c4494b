package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EngineOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_operations_total",
			Help: "Account operations by outcome (ok or error code)",
		},
		[]string{"operation", "outcome"},
	)
	EngineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_operation_duration_seconds",
			Help:    "Latency of account operations including lock wait",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	PowerCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_power_credited_total",
			Help: "Power credited to accounts by source",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(EngineOperations)
	prometheus.MustRegister(EngineDuration)
	prometheus.MustRegister(PowerCredited)
}
