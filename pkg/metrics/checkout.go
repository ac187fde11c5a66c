package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts checkout attempts by terminal state.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by terminal state.",
	}, []string{"state"})
	reg.MustRegister(attempts)
	return &CheckoutMetrics{attempts: attempts}
}

func (c *CheckoutMetrics) IncAttempt(state string) {
	if c == nil || c.attempts == nil {
		return
	}
	c.attempts.WithLabelValues(normalizeLabel(state)).Inc()
}
