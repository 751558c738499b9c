package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for chat exchanges.
type ChatMetrics struct {
	exchangesTotal  *prometheus.CounterVec
	exchangeLatency *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		exchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claude_agent",
			Subsystem: "chat",
			Name:      "exchanges_total",
			Help:      "Total chat exchanges by outcome",
		}, []string{"outcome", "model"}),
		exchangeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "claude_agent",
			Subsystem: "chat",
			Name:      "exchange_latency_seconds",
			Help:      "Latency of chat exchanges including the provider call",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claude_agent",
			Subsystem: "chat",
			Name:      "tokens_total",
			Help:      "Total provider tokens consumed",
		}, []string{"model"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "claude_agent",
			Subsystem: "chat",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the local rate limiter",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.exchangesTotal, m.exchangeLatency, m.tokensTotal, m.rateLimited)
	return m
}

// ObserveExchange records one completed exchange.
func (m *ChatMetrics) ObserveExchange(outcome, model string, seconds float64, tokens int) {
	if m == nil {
		return
	}
	m.exchangesTotal.WithLabelValues(outcome, model).Inc()
	m.exchangeLatency.WithLabelValues(model).Observe(seconds)
	if tokens > 0 {
		m.tokensTotal.WithLabelValues(model).Add(float64(tokens))
	}
}

// ObserveRateLimited records a request denied by the local limiter.
func (m *ChatMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
