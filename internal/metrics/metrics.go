package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HoldsCreated counts successful holds.
	HoldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "holds",
			Name:      "created_total",
			Help:      "The total number of holds created",
		},
	)

	// HoldsReleased counts holds released, by reason (expired, cancelled, trip_started, trip_cancelled).
	HoldsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "holds",
			Name:      "released_total",
			Help:      "The total number of holds released",
		},
		[]string{"reason"},
	)

	// HoldConflicts counts hold requests rejected because a seat was taken.
	HoldConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "holds",
			Name:      "conflicts_total",
			Help:      "The total number of hold requests rejected with a seat conflict",
		},
	)

	// SweepDuration The time spent in one expiry sweep (summary with quantiles 0.5, 0.9, and 0.99)
	SweepDuration = promauto.NewSummary(
		prometheus.SummaryOpts{
			Namespace:  "holds",
			Name:       "sweep_duration_seconds",
			Help:       "The time spent in one hold expiry sweep",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
	)

	// BookingTransitions counts booking status changes by target status.
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookings",
			Name:      "transitions_total",
			Help:      "The total number of booking status transitions",
		},
		[]string{"status"},
	)

	// PaymentSignals counts payment callbacks by outcome.
	PaymentSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "signals_total",
			Help:      "The total number of payment callbacks handled",
		},
		[]string{"signal", "result"},
	)

	// TripTransitions counts trip status changes by target status.
	TripTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trips",
			Name:      "transitions_total",
			Help:      "The total number of trip status transitions",
		},
		[]string{"status"},
	)

	// EventsPublished counts domain events handed to the event bus, by result.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "events",
			Name:      "published_total",
			Help:      "The total number of domain events published",
		},
		[]string{"event", "result"},
	)

	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)
)
