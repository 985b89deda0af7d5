// Package metrics exposes the service's Prometheus collectors. Collectors
// are registered on the default registry so promhttp.Handler serves them
// without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasklist"

var (
	// RateLimitDecisions counts allow/block outcomes per limiter class.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limit decisions by limiter class and outcome.",
	}, []string{"class", "outcome"})

	// ActiveBuckets tracks the live bucket count per limiter class.
	ActiveBuckets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "active_buckets",
		Help:      "Number of live rate limit buckets by limiter class.",
	}, []string{"class"})

	// AuthOperations counts the outcomes of auth lifecycle operations.
	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "operations_total",
		Help:      "Auth operations (login, refresh, logout, register) by outcome.",
	}, []string{"operation", "outcome"})
)

// ObserveRateLimit returns a decision callback for the named limiter class,
// suitable for httpx.RateLimitMiddleware.
func ObserveRateLimit(class string) func(allowed bool) {
	return func(allowed bool) {
		outcome := "allowed"
		if !allowed {
			outcome = "blocked"
		}
		RateLimitDecisions.WithLabelValues(class, outcome).Inc()
	}
}

// ObserveAuthOperation records one auth operation outcome.
func ObserveAuthOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AuthOperations.WithLabelValues(operation, outcome).Inc()
}

// SetActiveBuckets updates the live bucket gauge for a limiter class.
func SetActiveBuckets(class string, n int) {
	ActiveBuckets.WithLabelValues(class).Set(float64(n))
}
