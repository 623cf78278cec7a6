package driftwatch

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftwatch/driftwatch/pkg/eventbus"
)

// Exporter publishes detector state as prometheus metrics.  It subscribes to
// the monitor's event bus so the hot path never touches the metrics registry
// directly.
type Exporter struct {
	registry  *prometheus.Registry
	samples   prometheus.Counter
	anomalies prometheus.Counter
	mean      prometheus.Gauge
	variance  prometheus.Gauge
	zscore    prometheus.Gauge
}

// NewExporter returns an exporter with its own registry, labeled by monitor id
func NewExporter(id string) *Exporter {
	labels := prometheus.Labels{"monitor": id}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "driftwatch_samples_total",
			Help:        "Total number of samples accepted by the detector.",
			ConstLabels: labels,
		}),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "driftwatch_anomalies_total",
			Help:        "Total number of samples flagged anomalous.",
			ConstLabels: labels,
		}),
		mean: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "driftwatch_mean",
			Help:        "Current exponentially weighted mean estimate of the stream.",
			ConstLabels: labels,
		}),
		variance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "driftwatch_variance",
			Help:        "Current exponentially weighted variance estimate of the stream.",
			ConstLabels: labels,
		}),
		zscore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "driftwatch_zscore",
			Help:        "Z-score of the most recent sample.",
			ConstLabels: labels,
		}),
	}
	e.registry.MustRegister(e.samples, e.anomalies, e.mean, e.variance, e.zscore)
	return e
}

// Subscribe starts consuming verdict events from the bus and updating the
// registry until the bus shuts down
func (e *Exporter) Subscribe(bus *eventbus.EventBus) {
	ch, done := bus.Subscribe()
	go func() {
		for evt := range ch {
			if evt.Type != VerdictEvent {
				continue
			}
			obs, ok := evt.Data.(Observation)
			if !ok {
				continue
			}
			e.Record(obs)
		}
		close(done)
	}()
}

// Record updates the registry from a single observation
func (e *Exporter) Record(obs Observation) {
	e.samples.Inc()
	if obs.Verdict.IsAnomaly {
		e.anomalies.Inc()
	}
	e.mean.Set(obs.Verdict.Mean)
	e.variance.Set(obs.Verdict.Variance)
	e.zscore.Set(obs.Verdict.ZScore)
}

// Serve exposes the registry at /metrics on the given listen address.  It
// blocks for the life of the server.
func (e *Exporter) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
