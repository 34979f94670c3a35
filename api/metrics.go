package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// FunctionMetrics returns the per-function dispatch statistics.
// GET /v1/metrics/functions
func (h *Handler) FunctionMetrics(c echo.Context) error {
	snapshot := h.orch.Dispatch().Metrics().Snapshot()

	out := make(map[string]interface{}, len(snapshot))
	for name, stats := range snapshot {
		out[name] = map[string]interface{}{
			"calls":        stats.Calls,
			"successes":    stats.Successes,
			"errors":       stats.Errors,
			"average_ms":   stats.AverageMs(),
			"success_rate": stats.SuccessRate(),
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"functions": out})
}

// RoutingMetrics returns recent routing attempt records.
// GET /v1/metrics/routing?after_ts=...&limit=...
func (h *Handler) RoutingMetrics(c echo.Context) error {
	ctx := c.Request().Context()

	afterTs, _ := strconv.ParseInt(c.QueryParam("after_ts"), 10, 64)
	since := time.UnixMilli(afterTs)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 100
	}

	records, err := h.store.GetRoutingMetrics(ctx, since, limit+1)
	if err != nil {
		log.Printf("ERROR: failed to get routing metrics: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get routing metrics"})
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"records":  records,
		"has_more": hasMore,
	})
}
