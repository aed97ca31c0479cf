package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handypay_events_received_total",
		Help: "Payment outcome notifications received, by source.",
	}, []string{"source"})

	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handypay_duplicates_skipped_total",
		Help: "Notifications short-circuited because the outcome was already recorded.",
	})

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handypay_payments_recorded_total",
		Help: "Ledger entries committed, by payment status.",
	}, []string{"status"})

	ProcessingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handypay_processing_errors_total",
		Help: "Notifications that failed to commit and were handed back for redelivery.",
	})
)
