package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the collectors recorded by the consistency services.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	stockMutations      *prometheus.CounterVec
	checkoutCompletions *prometheus.CounterVec
	checkoutDuration    prometheus.Histogram
	cartMerges          *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stockMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_mutations_total",
			Help: "Stock ledger mutations by operation, reason and outcome.",
		}, []string{"op", "reason", "outcome"}),
		checkoutCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_completions_total",
			Help: "Checkout completion notifications by outcome.",
		}, []string{"outcome"}),
		checkoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Time spent handling one checkout completion notification.",
			Buckets: prometheus.DefBuckets,
		}),
		cartMerges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_merges_total",
			Help: "Login-time cart merges by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.stockMutations, m.checkoutCompletions, m.checkoutDuration, m.cartMerges)
	return m
}

func (m *Metrics) StockMutation(op, reason, outcome string) {
	if m == nil {
		return
	}
	m.stockMutations.WithLabelValues(op, reason, outcome).Inc()
}

func (m *Metrics) CheckoutCompleted(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.checkoutCompletions.WithLabelValues(outcome).Inc()
	m.checkoutDuration.Observe(seconds)
}

func (m *Metrics) CartMerge(outcome string) {
	if m == nil {
		return
	}
	m.cartMerges.WithLabelValues(outcome).Inc()
}
