package metrics

import (
	"manifestscan/internal/analyzer"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "manifestscan"

// Metrics represents the collection of all Prometheus metrics
type Metrics struct {
	// Standard metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Analysis metrics
	ArtifactsAnalyzed *prometheus.CounterVec
	AnalysisFailures  *prometheus.CounterVec
	EvidenceFacts     *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	ScansInProgress   prometheus.Gauge
	ScansCompleted    prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// means the process-wide default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests to the metrics endpoint",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.ArtifactsAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_analyzed_total",
			Help:      "Total number of artifacts handed to an analyzer",
		},
		[]string{"analyzer", "status"},
	)

	m.AnalysisFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Total number of artifacts that could not be analyzed, by failure kind",
		},
		[]string{"analyzer", "kind"},
	)

	m.EvidenceFacts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_facts_total",
			Help:      "Total number of evidence facts recorded",
		},
		[]string{"analyzer", "type"},
	)

	m.AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analyzing a single artifact",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"analyzer"},
	)

	m.ScansInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scans_in_progress",
			Help:      "Number of scans currently running",
		},
	)

	m.ScansCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_completed_total",
			Help:      "Total number of finished scans",
		},
	)

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ArtifactsAnalyzed,
		m.AnalysisFailures,
		m.EvidenceFacts,
		m.AnalysisDuration,
		m.ScansInProgress,
		m.ScansCompleted,
	)

	return m
}

// ObserveAnalysis records the outcome of one Analyze call.
func (m *Metrics) ObserveAnalysis(analyzerName string, a *dependency.Artifact, err error, d time.Duration) {
	m.AnalysisDuration.WithLabelValues(analyzerName).Observe(d.Seconds())
	if err != nil {
		m.ArtifactsAnalyzed.WithLabelValues(analyzerName, "failed").Inc()
		m.AnalysisFailures.WithLabelValues(analyzerName, analyzer.GetKind(err).String()).Inc()
		return
	}
	m.ArtifactsAnalyzed.WithLabelValues(analyzerName, "ok").Inc()
	if a == nil || a.Evidence == nil {
		return
	}
	for _, typ := range evidence.Types {
		if n := a.Evidence.Len(typ); n > 0 {
			m.EvidenceFacts.WithLabelValues(analyzerName, string(typ)).Add(float64(n))
		}
	}
}

// ScanStarted marks a scan as running.
func (m *Metrics) ScanStarted() {
	m.ScansInProgress.Inc()
}

// ScanFinished marks a running scan as done.
func (m *Metrics) ScanFinished() {
	m.ScansInProgress.Dec()
	m.ScansCompleted.Inc()
}

// Middleware for tracking HTTP requests
func (m *Metrics) RequestTrackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		// Record metrics
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter is a wrapper to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handler returns the Prometheus HTTP handler for the registry the metrics
// were registered with, wrapped in request tracking.
func (m *Metrics) Handler() http.Handler {
	return m.RequestTrackingMiddleware(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
