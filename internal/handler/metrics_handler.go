package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-professor-gateway/internal/service"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
	"github.com/noah-isme/sma-professor-gateway/pkg/response"
)

var errMetricsDisabled = appErrors.New("METRICS_DISABLED", http.StatusServiceUnavailable, "metrics are disabled")

// UpstreamInfo describes the professor backend this process fronts.
type UpstreamInfo struct {
	BaseURL     string `json:"base_url"`
	TokenSource string `json:"token_source"`
}

// MetricsHandler exposes the health probe and the Prometheus scrape endpoint.
type MetricsHandler struct {
	metrics  *service.MetricsService
	upstream UpstreamInfo
}

// NewMetricsHandler constructs a metrics handler. metrics may be nil when
// instrumentation is disabled.
func NewMetricsHandler(metrics *service.MetricsService, upstream UpstreamInfo) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, upstream: upstream}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, errMetricsDisabled)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health always answers 200 so the process stays live; status turns
// "degraded" once every backend call seen so far has failed.
func (h *MetricsHandler) Health(c *gin.Context) {
	snap := h.metrics.Snapshot()
	status := "ok"
	if snap.UpstreamRequests > 0 && snap.UpstreamFailures == snap.UpstreamRequests {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"upstream": h.upstream,
		"metrics":  snap,
	})
}
