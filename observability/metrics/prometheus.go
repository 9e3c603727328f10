package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector exports ORM and HTTP instrumentation as Prometheus series.
type PrometheusCollector struct {
	gatherer        prometheus.Gatherer
	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusCollector registers the collector series on reg. A nil registry
// results in a private registry, which keeps tests isolated from the default one.
func NewPrometheusCollector(namespace string, reg *prometheus.Registry) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "querystudy"
	}
	factory := promauto.With(reg)
	return &PrometheusCollector{
		gatherer: reg,
		queryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orm_queries_total",
				Help:      "Total number of ORM statements by table, operation and outcome",
			},
			[]string{"table", "operation", "status"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "orm_query_duration_seconds",
				Help:      "ORM statement latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table", "operation"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// RecordQuery implements Collector.
func (c *PrometheusCollector) RecordQuery(table, operation string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.queryTotal.WithLabelValues(table, operation, status).Inc()
	c.queryDuration.WithLabelValues(table, operation).Observe(duration.Seconds())
}

// RecordRequest implements Collector.
func (c *PrometheusCollector) RecordRequest(route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	c.requestTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler returns the exposition handler for /metrics.
func (c *PrometheusCollector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
