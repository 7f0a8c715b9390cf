package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antigravity",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	decision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antigravity",
			Name:      "booking_decision_total",
			Help:      "Count of admin decisions over bookings.",
		},
		[]string{"decision"},
	)

	expired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antigravity",
			Name:      "booking_expired_total",
			Help:      "Count of pending bookings expired by the sweep.",
		},
	)

	availabilityRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antigravity",
			Name:      "availability_requests_total",
			Help:      "Count of availability queries served.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antigravity",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	effectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antigravity",
			Name:      "effect_failures_total",
			Help:      "Count of failed transition side effects.",
		},
		[]string{"effect"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antigravity",
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by the rate limiter.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated, decision, expired,
			availabilityRequests, httpRequests,
			effectFailures, rateLimited,
		)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncDecision(d string) {
	decision.WithLabelValues(d).Inc()
}

func AddExpired(n int) {
	expired.Add(float64(n))
}

func IncAvailability() {
	availabilityRequests.Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncEffectFailure(effect string) {
	effectFailures.WithLabelValues(effect).Inc()
}

func IncRateLimited() {
	rateLimited.Inc()
}
