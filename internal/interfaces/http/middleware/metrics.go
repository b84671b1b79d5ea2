package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTP metric names
const (
	MetricHTTPRequests        = "http_server_request_total"
	MetricHTTPRequestDuration = "http_server_request_duration_seconds"
	MetricHTTPResponseSize    = "http_server_response_size_bytes"
	MetricHTTPActiveRequests  = "http_server_active_requests"
)

var (
	attrHTTPMethod     = attribute.Key("http.method")
	attrHTTPRoute      = attribute.Key("http.route")
	attrHTTPStatusCode = attribute.Key("http.status_code")
	attrTenantID       = attribute.Key("tenant_id")
)

var (
	httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	responseSizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}
)

type httpMetrics struct {
	requests       metric.Int64Counter
	duration       metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := meter.Int64Counter(MetricHTTPRequests,
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(MetricHTTPRequestDuration,
		metric.WithDescription("HTTP request latency distribution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	responseSize, err := meter.Int64Histogram(MetricHTTPResponseSize,
		metric.WithDescription("HTTP response body size distribution in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(responseSizeBuckets...),
	)
	if err != nil {
		return nil, err
	}
	activeRequests, err := meter.Int64UpDownCounter(MetricHTTPActiveRequests,
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{
		requests:       requests,
		duration:       duration,
		responseSize:   responseSize,
		activeRequests: activeRequests,
	}, nil
}

// HTTPMetrics records request count, latency, response size and in-flight
// requests on meter. Routes are labelled by pattern, never by raw path, so
// document ids do not explode cardinality. A nil meter disables collection,
// and so does an instrument registration error.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		m.activeRequests.Add(ctx, 1)
		c.Next()
		m.activeRequests.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		base := []attribute.KeyValue{
			attrHTTPMethod.String(c.Request.Method),
			attrHTTPRoute.String(route),
		}

		counted := append([]attribute.KeyValue{attrHTTPStatusCode.String(strconv.Itoa(c.Writer.Status()))}, base...)
		if tenantID := GetJWTTenantID(c); tenantID != "" {
			counted = append(counted, attrTenantID.String(tenantID))
		}
		m.requests.Add(ctx, 1, metric.WithAttributes(counted...))
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(base...))
		if size := c.Writer.Size(); size > 0 {
			m.responseSize.Record(ctx, int64(size), metric.WithAttributes(base...))
		}
	}
}
