package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot summarises counters for the health endpoint.
type MetricsSnapshot struct {
	Requests          uint64  `json:"requests"`
	UpstreamRequests  uint64  `json:"upstream_requests"`
	UpstreamFailures  uint64  `json:"upstream_failures"`
	AvgUpstreamMillis float64 `json:"avg_upstream_ms"`
}

// MetricsService encapsulates Prometheus instrumentation for inbound BFF
// requests and outbound calls to the professor backend.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	notifications    *prometheus.CounterVec

	requestCount          uint64
	upstreamCount         uint64
	upstreamFailureCount  uint64
	upstreamDurationTotal uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "professor_upstream_request_duration_seconds",
		Help:    "Duration of professor backend requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	upstreamTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "professor_upstream_requests_total",
		Help: "Total number of professor backend requests",
	}, []string{"method", "route", "status"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "professor_notifications_total",
		Help: "Notifications presented after professor operations",
	}, []string{"action", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamDuration, upstreamTotal, notifications, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		upstreamDuration: upstreamDuration,
		upstreamTotal:    upstreamTotal,
		notifications:    notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records inbound request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// ObserveUpstreamRequest records a professor backend exchange. Status 0
// means the request never got a response.
func (m *MetricsService) ObserveUpstreamRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := "error"
	if status > 0 {
		labelStatus = fmt.Sprintf("%d", status)
	}
	m.upstreamDuration.WithLabelValues(method, route, labelStatus).Observe(duration.Seconds())
	m.upstreamTotal.WithLabelValues(method, route, labelStatus).Inc()
	atomic.AddUint64(&m.upstreamCount, 1)
	atomic.AddUint64(&m.upstreamDurationTotal, uint64(duration.Nanoseconds()))
	if status == 0 || status >= 400 {
		atomic.AddUint64(&m.upstreamFailureCount, 1)
	}
}

// RecordNotification counts a presented notification.
func (m *MetricsService) RecordNotification(action string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.notifications.WithLabelValues(action, outcome).Inc()
}

// Snapshot returns aggregate counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	upstream := atomic.LoadUint64(&m.upstreamCount)
	snap := MetricsSnapshot{
		Requests:         atomic.LoadUint64(&m.requestCount),
		UpstreamRequests: upstream,
		UpstreamFailures: atomic.LoadUint64(&m.upstreamFailureCount),
	}
	if upstream > 0 {
		total := atomic.LoadUint64(&m.upstreamDurationTotal)
		snap.AvgUpstreamMillis = float64(total) / float64(upstream) / float64(time.Millisecond)
	}
	return snap
}
