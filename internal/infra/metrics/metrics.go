package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	activationsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_issued_total",
			Help: "Issuance workflow outcomes (ok/invalid_payload/persist_failed).",
		},
		[]string{"result"},
	)

	activationsRedeemed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_redeemed_total",
			Help: "Redemption workflow outcomes (ok/not_found/mismatch/already_used/resume_failed/mark_used_failed).",
		},
		[]string{"result"},
	)

	pauseFailuresTolerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_pause_failures_tolerated_total",
			Help: "Issuances that proceeded despite a failed pause call.",
		},
	)

	controlCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_control_calls_total",
			Help: "Outbound Subscription Control calls per operation and result.",
		},
		[]string{"op", "result"},
	)

	controlLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subscription_control_latency_ms",
			Help:    "Subscription Control call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"op"},
	)

	reconcilerRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_reconciler_records_total",
			Help: "Records the reconciler flagged or repaired, by action.",
		},
		[]string{"action"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			activationsIssued, activationsRedeemed, pauseFailuresTolerated,
			controlCalls, controlLatencyMs, reconcilerRepairs,
		)
	})
}

func IncIssued(result string)   { activationsIssued.WithLabelValues(result).Inc() }
func IncRedeemed(result string) { activationsRedeemed.WithLabelValues(result).Inc() }
func IncPauseFailureTolerated() { pauseFailuresTolerated.Inc() }

func ObserveControlCall(op string, ms float64, success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	controlCalls.WithLabelValues(op, result).Inc()
	controlLatencyMs.WithLabelValues(op).Observe(ms)
}

func IncReconciler(action string) { reconcilerRepairs.WithLabelValues(action).Inc() }
