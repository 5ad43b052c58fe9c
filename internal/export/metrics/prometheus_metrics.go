package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

const subsystem = "export"

// PrometheusMetrics holds the export service collectors
type PrometheusMetrics struct {
	// HTTP metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	// Pipeline metrics
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	messages      prometheus.Histogram
	pdfSize       prometheus.Histogram

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics registers collectors on the default registry
func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry registers collectors on registerer
func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pm.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "End-to-end request latency by endpoint",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"endpoint"})

	pm.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each pipeline stage",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"stage"})

	pm.stageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "stage_failures_total",
		Help:      "Pipeline failures by stage and error kind",
	}, []string{"stage", "kind"})

	pm.messages = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "conversation_messages",
		Help:      "Messages per extracted conversation",
		Buckets:   prometheus.ExponentialBuckets(2, 2, 9), // 2 to 512
	})

	pm.pdfSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pdf_size_bytes",
		Help:      "Size of generated PDF documents",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10), // 16KB to 8MB
	})

	registerer.MustRegister(
		pm.httpRequests,
		pm.httpDuration,
		pm.stageDuration,
		pm.stageFailures,
		pm.messages,
		pm.pdfSize,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Info("Export service Prometheus metrics initialized")
	return pm
}

func (pm *PrometheusMetrics) RecordHTTPRequest(endpoint, status string, seconds float64) {
	pm.httpRequests.WithLabelValues(endpoint, status).Inc()
	pm.httpDuration.WithLabelValues(endpoint).Observe(seconds)
}

func (pm *PrometheusMetrics) RecordStageDuration(stage string, seconds float64) {
	pm.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (pm *PrometheusMetrics) RecordStageFailure(stage, kind string) {
	pm.stageFailures.WithLabelValues(stage, kind).Inc()
}

func (pm *PrometheusMetrics) RecordMessages(count float64) {
	pm.messages.Observe(count)
}

func (pm *PrometheusMetrics) RecordPDFSize(bytes float64) {
	pm.pdfSize.Observe(bytes)
}

// ServeHTTP serves Prometheus metrics via HTTP
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
