package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	remoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "libcal_cli",
			Name:      "remote_requests_total",
			Help:      "Requests to the booking service by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "libcal_cli",
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(remoteRequests, bookingAttempts)
	})
}

// IncRequest increments the remote request counter for an endpoint label.
func IncRequest(endpoint string) {
	remoteRequests.WithLabelValues(endpoint).Inc()
}

// IncBooking increments the booking attempt counter for an outcome label.
func IncBooking(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}
