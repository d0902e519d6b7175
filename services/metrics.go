package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("cart-recovery")

var (
	cartTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_recovery_transitions_total",
		Help: "Abandoned cart state transitions by target status.",
	}, []string{"status"})

	reminderDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_recovery_reminders_total",
		Help: "Reminder dispatch attempts by sequence and result.",
	}, []string{"sequence", "result"})

	discountRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_redemptions_total",
		Help: "Discount apply attempts by result.",
	}, []string{"result"})

	snapshotWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_snapshot_writes_total",
		Help: "Cart snapshot writes by outcome.",
	}, []string{"status"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_recovery_sweep_duration_seconds",
		Help:    "Duration of abandoned cart sweeps.",
		Buckets: prometheus.DefBuckets,
	})
)
