// README: Prometheus collectors for applied events, chat calls and open orders.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	registry   *prometheus.Registry
	events     *prometheus.CounterVec
	chatCalls  *prometheus.CounterVec
	openOrders prometheus.Gauge
	ocr        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "events_total",
			Help:      "Orchestrator events by kind and result.",
		}, []string{"kind", "result"}),
		chatCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "chat_calls_total",
			Help:      "Outbound chat API calls by operation and result.",
		}, []string{"op", "result"}),
		openOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dispatch",
			Name:      "open_orders",
			Help:      "Orders not yet delivered or removed.",
		}),
		ocr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "ocr_results_total",
			Help:      "Photo parses by outcome code.",
		}, []string{"code"}),
	}
	reg.MustRegister(m.events, m.chatCalls, m.openOrders, m.ocr,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Event(kind, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ChatCall(op, result string) {
	if m == nil {
		return
	}
	m.chatCalls.WithLabelValues(op, result).Inc()
}

func (m *Metrics) SetOpenOrders(n int) {
	if m == nil {
		return
	}
	m.openOrders.Set(float64(n))
}

func (m *Metrics) OCR(code string) {
	if m == nil {
		return
	}
	m.ocr.WithLabelValues(code).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
