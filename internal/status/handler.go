package status

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/burst-camera/internal/dto"
	"github.com/eleven-am/burst-camera/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/snapshot", h.GetSnapshot)
	g.GET("/metrics/:id", h.GetMetrics)
	g.GET("/metrics/:id/summary", h.GetSummary)
}

// @Summary      Get the last published camera status
// @Description  Returns the status snapshot mirrored into redis, which survives daemon restarts until it expires
// @Tags         metrics
// @Produce      json
// @Success      200  {object}  Snapshot
// @Failure      404  {object}  shared.APIError
// @Router       /camera/snapshot [get]
func (h *Handler) GetSnapshot(c echo.Context) error {
	snap, err := h.store.Get(c.Request().Context())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("snapshot_not_found", "no status has been published")
		}
		h.logger.Error("failed to get snapshot", "error", err)
		return shared.InternalError("get_failed", "failed to get status snapshot")
	}
	return c.JSON(http.StatusOK, snap)
}

func metricsToResponse(m *Metrics) dto.MetricsResponse {
	return dto.MetricsResponse{
		CameraID:      m.CameraID,
		Date:          m.Date,
		Hour:          m.Hour,
		Bursts:        m.Bursts,
		Complete:      m.Complete,
		Partial:       m.Partial,
		Aborted:       m.Aborted,
		FramesWritten: m.FramesWritten,
		FramesFailed:  m.FramesFailed,
		Faults:        m.Faults,
		AvgBurstMs:    m.AvgBurstMs,
	}
}

// @Summary      Get hourly capture metrics
// @Tags         metrics
// @Produce      json
// @Param        id     path      string  true   "Camera ID"
// @Param        hours  query     int     false  "Window in hours (max 168)"
// @Success      200    {object}  dto.MetricsListResponse
// @Failure      500    {object}  shared.APIError
// @Router       /camera/metrics/{id} [get]
func (h *Handler) GetMetrics(c echo.Context) error {
	cameraID := c.Param("id")

	hoursStr := c.QueryParam("hours")
	hours := 24
	if hoursStr != "" {
		if hr, err := strconv.Atoi(hoursStr); err == nil && hr > 0 && hr <= 168 {
			hours = hr
		}
	}

	metrics, err := h.store.GetMetrics(c.Request().Context(), cameraID, hours)
	if err != nil {
		h.logger.Error("failed to get metrics", "error", err, "camera_id", cameraID)
		return shared.InternalError("get_metrics_failed", "failed to get metrics")
	}

	response := make([]dto.MetricsResponse, len(metrics))
	for i, m := range metrics {
		response[i] = metricsToResponse(m)
	}

	return c.JSON(http.StatusOK, dto.MetricsListResponse{
		CameraID: cameraID,
		Hours:    hours,
		Metrics:  response,
	})
}

// @Summary      Get a seven day capture summary
// @Tags         metrics
// @Produce      json
// @Param        id   path      string  true  "Camera ID"
// @Success      200  {object}  dto.SummaryResponse
// @Failure      500  {object}  shared.APIError
// @Router       /camera/metrics/{id}/summary [get]
func (h *Handler) GetSummary(c echo.Context) error {
	cameraID := c.Param("id")

	metrics, err := h.store.GetMetrics(c.Request().Context(), cameraID, 7*24)
	if err != nil {
		h.logger.Error("failed to get metrics summary", "error", err, "camera_id", cameraID)
		return shared.InternalError("get_metrics_failed", "failed to get metrics")
	}

	summary := dto.SummaryResponse{
		CameraID: cameraID,
		Period:   "7d",
	}

	var complete, totalMs int64
	for _, m := range metrics {
		summary.TotalBursts += m.Bursts
		summary.TotalFrames += m.FramesWritten + m.FramesFailed
		summary.FailedFrames += m.FramesFailed
		summary.Faults += m.Faults
		complete += m.Complete
		totalMs += m.AvgBurstMs * m.Bursts
	}

	if summary.TotalBursts > 0 {
		summary.AvgBurstMs = totalMs / summary.TotalBursts
		summary.CompleteRatio = float64(complete) / float64(summary.TotalBursts) * 100
	}
	if summary.TotalFrames > 0 {
		summary.FailureRate = float64(summary.FailedFrames) / float64(summary.TotalFrames) * 100
	}

	return c.JSON(http.StatusOK, summary)
}
