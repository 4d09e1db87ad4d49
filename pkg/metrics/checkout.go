package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeEmptyCart   = "empty_cart"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// CheckoutMetrics records order creation results.
type CheckoutMetrics struct {
	attempts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	unitsSold  prometheus.Counter
	orderValue prometheus.Histogram
	retries    prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer
// yields a recorder whose methods are no-ops.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_attempts_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Time spent in the checkout unit of work.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		unitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_units_sold_total",
			Help: "Product units decremented by committed orders.",
		}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_order_value_cents",
			Help:    "Order totals in cents.",
			Buckets: prometheus.ExponentialBuckets(500, 2, 10),
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_order_number_retries_total",
			Help: "Checkout retries caused by order number collisions.",
		}),
	}
	reg.MustRegister(m.attempts, m.duration, m.unitsSold, m.orderValue, m.retries)
	return m
}

// Observe records one finished checkout attempt.
func (m *CheckoutMetrics) Observe(outcome string, elapsed time.Duration) {
	if m == nil || m.attempts == nil {
		return
	}
	if outcome == "" {
		outcome = OutcomeError
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordOrder records the size of a committed order.
func (m *CheckoutMetrics) RecordOrder(units int, totalCents int64) {
	if m == nil || m.unitsSold == nil {
		return
	}
	m.unitsSold.Add(float64(units))
	m.orderValue.Observe(float64(totalCents))
}

func (m *CheckoutMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}
