// Package metrics exposes Prometheus instruments for the scheduling
// engine. All observer methods are nil-safe so wiring metrics stays
// optional in tests and tooling.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type BookingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	availabilityTotal *prometheus.CounterVec
	bookingLatency    prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postopcare",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postopcare",
			Subsystem: "scheduling",
			Name:      "availability_requests_total",
			Help:      "Availability reads by day disposition",
		}, []string{"disposition"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "postopcare",
			Subsystem: "scheduling",
			Name:      "booking_latency_seconds",
			Help:      "Latency of the booking write path",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.availabilityTotal, m.bookingLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveAvailability(disposition string) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(disposition).Inc()
}

func (m *BookingMetrics) ObserveBookingLatency(seconds float64) {
	if m == nil {
		return
	}
	m.bookingLatency.Observe(seconds)
}
