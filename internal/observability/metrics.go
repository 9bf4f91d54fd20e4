package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_reservations_created_total",
			Help: "Total reservations created in held state",
		},
	)

	SlotConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_slot_conflicts_total",
			Help: "Total reservation attempts rejected as conflicts",
		},
	)

	SweepDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sweep_deleted_total",
			Help: "Total expired reservations removed by the sweeper",
		},
	)

	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sweep_failures_total",
			Help: "Total per-reservation delete failures during sweeps",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_sweep_seconds",
			Help:    "Duration of sweep runs",
			Buckets: prometheus.DefBuckets,
		},
	)
)
