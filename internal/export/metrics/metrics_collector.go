// Package metrics records export service metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/export/exporterr"
)

// MetricsCollector is the single entry point for recording metrics
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

// NewMetricsCollector creates a collector on the default registry
func NewMetricsCollector(namespace string, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetrics(namespace, logger),
		logger:     logger,
	}
}

// NewMetricsCollectorWithRegistry creates a collector on a custom registry
func NewMetricsCollectorWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetricsWithRegistry(namespace, registerer, logger),
		logger:     logger,
	}
}

// RecordHTTPRequest records a finished request
func (mc *MetricsCollector) RecordHTTPRequest(endpoint string, status int, duration time.Duration) {
	mc.prometheus.RecordHTTPRequest(endpoint, strconv.Itoa(status), duration.Seconds())
}

// RecordStage records how long a successful or failed stage took
func (mc *MetricsCollector) RecordStage(stage string, duration time.Duration) {
	mc.prometheus.RecordStageDuration(stage, duration.Seconds())
}

// RecordFailure records a terminal pipeline error by stage and kind
func (mc *MetricsCollector) RecordFailure(err error) {
	kind := "internal"
	if e, ok := exporterr.As(err); ok {
		kind = string(e.Kind)
		if e.Sub != exporterr.SubNone {
			kind += "/" + string(e.Sub)
		}
	}
	mc.prometheus.RecordStageFailure(exporterr.StageOf(err), kind)
}

// RecordConversation records the size of a normalized conversation
func (mc *MetricsCollector) RecordConversation(messages int) {
	mc.prometheus.RecordMessages(float64(messages))
}

// RecordPDF records a generated document size
func (mc *MetricsCollector) RecordPDF(size int) {
	mc.prometheus.RecordPDFSize(float64(size))
}

// ServeHTTP serves Prometheus metrics via HTTP
func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
