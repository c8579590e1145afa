// Package metrics exports pipeline counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FeedbackBot/internal/ports"
)

const namespace = "feedbackbot"

// Prometheus implements ports.Metrics on a private registry.
type Prometheus struct {
	registry      *prometheus.Registry
	compileCycles *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	fetchAttempts *prometheus.CounterVec
}

var _ ports.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the bot counters along with Go runtime collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		compileCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compile_cycles_total",
			Help:      "Report compile cycles by kind and result.",
		}, []string{"kind", "result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-recipient report deliveries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_fetch_attempts_total",
			Help:      "Review aggregator fetch attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		p.compileCycles,
		p.deliveries,
		p.fetchAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) CompileCycle(kind, result string) {
	p.compileCycles.WithLabelValues(kind, result).Inc()
}

func (p *Prometheus) Delivery(kind, outcome string) {
	p.deliveries.WithLabelValues(kind, outcome).Inc()
}

func (p *Prometheus) FetchAttempt(result string) {
	p.fetchAttempts.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry for gathering.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry over HTTP.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
