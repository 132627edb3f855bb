// Package metrics exposes run counters for the acquisition, delivery and
// retention components in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	acquisitionRuns     *prometheus.CounterVec
	acquisitionSkipped  *prometheus.CounterVec
	postingsFetched     prometheus.Counter
	postingsInvalid     prometheus.Counter
	postingsSaved       prometheus.Counter
	topicFailures       prometheus.Counter
	acquisitionDuration prometheus.Histogram

	deliveryRuns     *prometheus.CounterVec
	messagesSent     prometheus.Counter
	messagesFailed   prometheus.Counter
	deliveryDuration prometheus.Histogram

	recordsCleaned prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		acquisitionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobalert_acquisition_runs_total",
			Help: "Acquisition cycles by outcome.",
		}, []string{"outcome"}),
		acquisitionSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobalert_acquisition_skipped_total",
			Help: "Acquisition cycles skipped before starting, by reason.",
		}, []string{"reason"}),
		postingsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_postings_fetched_total",
			Help: "Postings returned by harvesters.",
		}),
		postingsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_postings_invalid_total",
			Help: "Harvested postings rejected by validation.",
		}),
		postingsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_postings_saved_total",
			Help: "Postings written to the ledger.",
		}),
		topicFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_topic_failures_total",
			Help: "Harvester requests that failed after retries.",
		}),
		acquisitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobalert_acquisition_duration_seconds",
			Help:    "Wall time of an acquisition cycle.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		deliveryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobalert_delivery_runs_total",
			Help: "Delivery cycles by outcome.",
		}, []string{"outcome"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_messages_sent_total",
			Help: "Posting messages delivered.",
		}),
		messagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_messages_failed_total",
			Help: "Posting messages that failed to send.",
		}),
		deliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobalert_delivery_duration_seconds",
			Help:    "Wall time of a delivery cycle.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		recordsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobalert_records_cleaned_total",
			Help: "Postings and delivery records removed by retention.",
		}),
	}
	m.registry.MustRegister(
		m.acquisitionRuns, m.acquisitionSkipped, m.postingsFetched, m.postingsInvalid, m.postingsSaved,
		m.topicFailures, m.acquisitionDuration,
		m.deliveryRuns, m.messagesSent, m.messagesFailed, m.deliveryDuration,
		m.recordsCleaned,
		collectors.NewGoCollector(),
	)
	return m
}

// Acquisition records one finished acquisition cycle.
func (m *Metrics) Acquisition(outcome string, fetched, invalid, saved, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.acquisitionRuns.WithLabelValues(outcome).Inc()
	m.postingsFetched.Add(float64(fetched))
	m.postingsInvalid.Add(float64(invalid))
	m.postingsSaved.Add(float64(saved))
	m.topicFailures.Add(float64(failed))
	m.acquisitionDuration.Observe(took.Seconds())
}

// Skip reasons for AcquisitionSkipped.
const (
	SkipInProgress = "in_progress"
	SkipLeaseHeld  = "lease_held"
)

// AcquisitionSkipped records a cycle that did not start.
func (m *Metrics) AcquisitionSkipped(reason string) {
	if m == nil {
		return
	}
	m.acquisitionSkipped.WithLabelValues(reason).Inc()
}

// Delivery records one finished delivery cycle.
func (m *Metrics) Delivery(outcome string, sent, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.deliveryRuns.WithLabelValues(outcome).Inc()
	m.messagesSent.Add(float64(sent))
	m.messagesFailed.Add(float64(failed))
	m.deliveryDuration.Observe(took.Seconds())
}

// Cleaned records rows removed by a retention pass.
func (m *Metrics) Cleaned(n int64) {
	if m == nil {
		return
	}
	m.recordsCleaned.Add(float64(n))
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      m.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
