package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
)

// HTTPMetrics is the part of awspkg.MetricsClient the middleware needs.
type HTTPMetrics interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// unmeteredPrefixes are polled or static routes that would drown the API numbers.
var unmeteredPrefixes = []string{"/health", "/media/"}

// MetricsMiddleware records request count, latency and error counts per route
// template, so session IDs never become dimensions. Data points are sent off
// the request path.
func MetricsMiddleware(metrics HTTPMetrics, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil || !metrics.IsEnabled() || unmetered(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		dims := routeDimensions(serviceName, c.Request.Method, c.FullPath(), status)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, name := range metricNamesFor(status) {
				_ = metrics.RecordCount(ctx, name, dims)
			}
			_ = metrics.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dims)
		}()
	}
}

func unmetered(path string) bool {
	for _, p := range unmeteredPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func routeDimensions(service, method, route string, status int) map[string]string {
	if route == "" {
		route = "unmatched"
	}
	return map[string]string{
		"Service": service,
		"Method":  method,
		"Route":   route,
		"Status":  statusCodeToRange(status),
	}
}

// metricNamesFor lists the counters a response with status increments.
func metricNamesFor(status int) []string {
	names := []string{awspkg.MetricHTTPRequests}
	switch {
	case status >= 500:
		names = append(names, awspkg.MetricHTTPErrors, awspkg.MetricHTTP5xx)
	case status >= 400:
		names = append(names, awspkg.MetricHTTPErrors, awspkg.MetricHTTP4xx)
	}
	return names
}

func statusCodeToRange(statusCode int) string {
	if statusCode < 200 || statusCode > 599 {
		return "unknown"
	}
	return string(rune('0'+statusCode/100)) + "xx"
}
