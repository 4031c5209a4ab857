// Package metrics holds the Prometheus collectors of one CLI invocation.
//
// Collectors live on a private registry. A short-lived command cannot be
// scraped, so the registry is written out in the node exporter textfile
// format when --metrics-file is given. A nil *Metrics disables collection.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

const namespace = "opencefadb"

// Fetch results.
const (
	FetchOK        = "ok"
	FetchCached    = "cached"
	FetchIntegrity = "integrity"
	FetchNotFound  = "not_found"
	FetchNetwork   = "network"
	FetchCancelled = "cancelled"
	FetchError     = "error"
)

// Metrics holds the collectors.
type Metrics struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec   // by result
	fetchBytes    prometheus.Counter       // bytes written to the workspace
	fetchDuration prometheus.Histogram     // transfers only, cache hits excluded
	documents     *prometheus.CounterVec   // by backend and result (loaded/failed)
	triples       *prometheus.CounterVec   // by backend
	queries       *prometheus.CounterVec   // by backend and result (ok/syntax/unavailable)
	queryDuration *prometheus.HistogramVec // by backend
	resolved      prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Artifact fetches by result",
		}, []string{"result"}),

		fetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Bytes downloaded into the workspace",
		}),

		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Duration of artifact transfers",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}),

		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "documents_total",
			Help:      "Metadata documents processed by load, by result",
		}, []string{"backend", "result"}),

		triples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "triples_loaded_total",
			Help:      "Statements inserted into the metadata store",
		}, []string{"backend"}),

		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "queries_total",
			Help:      "Metadata queries by result",
		}, []string{"backend", "result"}),

		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Metadata query duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),

		resolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "references_total",
			Help:      "Data file references returned by resolution",
		}),
	}

	m.registry.MustRegister(
		m.fetches, m.fetchBytes, m.fetchDuration,
		m.documents, m.triples, m.queries, m.queryDuration,
		m.resolved,
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch records one fetch. Duration is ignored for cache hits.
func (m *Metrics) ObserveFetch(result string, bytes int64, d time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.fetchBytes.Add(float64(bytes))
	}
	if result != FetchCached {
		m.fetchDuration.Observe(d.Seconds())
	}
}

// FetchResult classifies a fetch error.
func FetchResult(err error) string {
	var (
		integrity *domain.IntegrityError
		notFound  *domain.NotFoundError
		network   *domain.NetworkError
	)
	switch {
	case err == nil:
		return FetchOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FetchCancelled
	case errors.As(err, &integrity):
		return FetchIntegrity
	case errors.As(err, &notFound):
		return FetchNotFound
	case errors.As(err, &network):
		return FetchNetwork
	default:
		return FetchError
	}
}

// ObserveLoad records a batch load.
func (m *Metrics) ObserveLoad(backend domain.BackendKind, loaded, failed, triples int) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(backend.String(), "loaded").Add(float64(loaded))
	m.documents.WithLabelValues(backend.String(), "failed").Add(float64(failed))
	m.triples.WithLabelValues(backend.String()).Add(float64(triples))
}

// ObserveQuery records one query.
func (m *Metrics) ObserveQuery(backend domain.BackendKind, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	var qErr *domain.QueryError
	if errors.As(err, &qErr) {
		result = "syntax"
		if qErr.Kind == domain.QueryBackendUnavailable {
			result = "unavailable"
		}
	} else if err != nil {
		result = "error"
	}
	m.queries.WithLabelValues(backend.String(), result).Inc()
	m.queryDuration.WithLabelValues(backend.String()).Observe(d.Seconds())
}

// ObserveResolve records the number of references a resolution returned.
func (m *Metrics) ObserveResolve(n int) {
	if m == nil {
		return
	}
	m.resolved.Add(float64(n))
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
