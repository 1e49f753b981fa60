// Package prometheus exposes training and inference metrics through the
// Prometheus client.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "molgnn"

// Metrics bundles the service's Prometheus collectors. It satisfies the
// training loop's metrics sink.
type Metrics struct {
	registry *prometheus.Registry

	epochsTotal   prometheus.Counter
	epochLoss     prometheus.Gauge
	epochDuration prometheus.Histogram
	batchLoss     prometheus.Histogram

	predictionsTotal  prometheus.Counter
	predictDuration   prometheus.Histogram
	checkpointFetches *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		epochsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "train_epochs_total",
			Help:      "Completed training epochs.",
		}),
		epochLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "train_epoch_loss",
			Help:      "Mean loss of the most recent epoch.",
		}),
		epochDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "train_epoch_duration_seconds",
			Help:      "Wall-clock duration of one training epoch.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		batchLoss: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "train_batch_loss",
			Help:      "Per-batch mean loss.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		predictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Molecules scored by predict calls.",
		}),
		predictDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_duration_seconds",
			Help:      "Wall-clock duration of one predict call.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		checkpointFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_fetches_total",
			Help:      "Checkpoint fetch attempts by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.epochsTotal, m.epochLoss, m.epochDuration, m.batchLoss,
		m.predictionsTotal, m.predictDuration, m.checkpointFetches,
	)
	return m
}

// ObserveEpoch records one completed training epoch.
func (m *Metrics) ObserveEpoch(_ int, loss float64, elapsed time.Duration) {
	m.epochsTotal.Inc()
	m.epochLoss.Set(loss)
	m.epochDuration.Observe(elapsed.Seconds())
}

// ObserveBatch records one training batch loss.
func (m *Metrics) ObserveBatch(loss float64) {
	m.batchLoss.Observe(loss)
}

// ObservePredict records one completed predict call.
func (m *Metrics) ObservePredict(molecules int, elapsed time.Duration) {
	m.predictionsTotal.Add(float64(molecules))
	m.predictDuration.Observe(elapsed.Seconds())
}

// ObserveCheckpointFetch records a checkpoint fetch attempt.
func (m *Metrics) ObserveCheckpointFetch(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.checkpointFetches.WithLabelValues(outcome).Inc()
}

// Handler returns the exposition endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Serve starts an HTTP server exposing metrics at path on addr. It blocks;
// run it in a goroutine.
func Serve(addr, path string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	return http.ListenAndServe(addr, mux)
}
