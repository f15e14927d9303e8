// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_http_request_duration_seconds",
		Help:    "Latency of API requests by route and status class",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	BookingTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_booking_transitions_total",
		Help: "Booking status changes that were applied",
	}, []string{"from", "to"})

	VisitsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_visits_recorded_total",
		Help: "Guest visits recorded by staff",
	})

	BroadcastDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_broadcast_deliveries_total",
		Help: "Broadcast message delivery attempts by outcome",
	}, []string{"status"})

	SegmentRecalculations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_segment_recalculations_total",
		Help: "Bulk segment recalculations run",
	})
)

var once sync.Once

// Init registers the collectors with the default registry.  It is safe to
// call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestDuration,
			BookingTransitions,
			VisitsRecorded,
			BroadcastDeliveries,
			SegmentRecalculations,
		)
	})
}
