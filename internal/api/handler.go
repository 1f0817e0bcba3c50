package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/dto"
	"github.com/eleven-am/burst-camera/internal/ledger"
	"github.com/eleven-am/burst-camera/internal/session"
	"github.com/eleven-am/burst-camera/internal/shared"
	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Camera interface {
	IsCameraAvailable() bool
	Initialize(preview camera.PreviewSurface) (camera.Descriptor, error)
	StartPreview(ctx context.Context) error
	StartCapture(ctx context.Context, folder string) (*session.Burst, error)
	StopCapture(ctx context.Context) error
	Shutdown()
	Status() session.Status
}

type Ledger interface {
	Get(ctx context.Context, id string) (*ledger.Burst, error)
	List(ctx context.Context, limit, offset int) ([]*ledger.Burst, error)
	Count(ctx context.Context) (int64, error)
}

type Results interface {
	GetResult(ctx context.Context, burstID string) (*session.Result, error)
}

type Handler struct {
	camera  Camera
	preview camera.PreviewSurface
	ledger  Ledger
	results Results
	logger  *slog.Logger
}

// NewHandler builds the camera control handler. bursts and results may be
// nil when the daemon runs without a database or redis.
func NewHandler(cam Camera, preview camera.PreviewSurface, bursts Ledger, results Results, logger *slog.Logger) *Handler {
	return &Handler{
		camera:  cam,
		preview: preview,
		ledger:  bursts,
		results: results,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/available", h.Available)
	g.GET("/status", h.Status)
	g.POST("/initialize", h.Initialize)
	g.POST("/preview", h.StartPreview)
	g.POST("/capture", h.StartCapture)
	g.POST("/stop", h.StopCapture)
	g.POST("/shutdown", h.Shutdown)
	g.GET("/bursts", h.ListBursts)
	g.GET("/bursts/:id", h.GetBurst)
}

// @Summary      Check camera availability
// @Description  Reports whether at least one camera can be enumerated. Enumeration errors report false.
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.AvailabilityResponse
// @Router       /camera/available [get]
func (h *Handler) Available(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.AvailabilityResponse{Available: h.camera.IsCameraAvailable()})
}

// @Summary      Get camera status
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.StatusResponse
// @Router       /camera/status [get]
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusToResponse(h.camera.Status()))
}

// @Summary      Select and bind a camera
// @Description  Picks the rear RAW-capable camera when present and binds the preview stream. Does nothing while a camera is bound.
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.CameraResponse
// @Failure      404  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /camera/initialize [post]
func (h *Handler) Initialize(c echo.Context) error {
	d, err := h.camera.Initialize(h.preview)
	if err != nil {
		h.logger.Warn("initialize failed", "error", err)
		return cameraError(err)
	}
	return c.JSON(http.StatusOK, dto.CameraResponse{Camera: d})
}

// @Summary      Start live preview
// @Description  Opens the camera and configures the capture session. Returns once the camera is previewing.
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.StatusResponse
// @Failure      409  {object}  shared.APIError
// @Failure      502  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError
// @Router       /camera/preview [post]
func (h *Handler) StartPreview(c echo.Context) error {
	if err := h.camera.StartPreview(c.Request().Context()); err != nil {
		h.logger.Warn("start preview failed", "error", err)
		return cameraError(err)
	}
	return c.JSON(http.StatusOK, statusToResponse(h.camera.Status()))
}

// @Summary      Capture a burst
// @Description  Submits the bracketed burst into the destination folder. With wait=true the call returns the burst result instead of the plan.
// @Tags         camera
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CaptureRequest  true   "Destination folder"
// @Param        wait     query     bool                false  "Wait for the burst to finish"
// @Success      200      {object}  dto.ResultResponse
// @Success      202      {object}  dto.CaptureResponse
// @Failure      400      {object}  shared.APIError
// @Failure      409      {object}  shared.APIError
// @Router       /camera/capture [post]
func (h *Handler) StartCapture(c echo.Context) error {
	var req dto.CaptureRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.Folder == "" {
		return shared.BadRequest("invalid_folder", "folder is required")
	}

	ctx := c.Request().Context()
	b, err := h.camera.StartCapture(ctx, req.Folder)
	if err != nil {
		h.logger.Warn("start capture failed", "error", err, "folder", req.Folder)
		return cameraError(err)
	}

	if wait, _ := strconv.ParseBool(c.QueryParam("wait")); !wait {
		return c.JSON(http.StatusAccepted, dto.CaptureResponse{
			BurstID: b.ID(),
			Folder:  b.Folder(),
			Plan:    b.Plan(),
		})
	}

	r, err := b.Wait(ctx)
	if err != nil {
		return cameraError(err)
	}
	return c.JSON(http.StatusOK, resultToResponse(r))
}

// @Summary      Stop the running burst
// @Description  Abandons the in-flight burst and resumes preview. Does nothing while previewing.
// @Tags         camera
// @Success      204  "No Content"
// @Failure      409  {object}  shared.APIError
// @Router       /camera/stop [post]
func (h *Handler) StopCapture(c echo.Context) error {
	if err := h.camera.StopCapture(c.Request().Context()); err != nil {
		h.logger.Warn("stop capture failed", "error", err)
		return cameraError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// @Summary      Release the camera
// @Description  Releases every camera resource. Always succeeds.
// @Tags         camera
// @Success      204  "No Content"
// @Router       /camera/shutdown [post]
func (h *Handler) Shutdown(c echo.Context) error {
	h.camera.Shutdown()
	return c.NoContent(http.StatusNoContent)
}

// @Summary      List recorded bursts
// @Tags         bursts
// @Produce      json
// @Param        limit   query     int  false  "Page size (max 100)"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  dto.BurstListResponse
// @Failure      503     {object}  shared.APIError
// @Router       /camera/bursts [get]
func (h *Handler) ListBursts(c echo.Context) error {
	if h.ledger == nil {
		return shared.ServiceUnavailable("ledger_disabled", "capture ledger is not configured")
	}

	limit := defaultListLimit
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= maxListLimit {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}

	ctx := c.Request().Context()
	bursts, err := h.ledger.List(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list bursts", "error", err)
		return shared.InternalError("list_failed", "failed to list bursts")
	}
	total, err := h.ledger.Count(ctx)
	if err != nil {
		h.logger.Error("failed to count bursts", "error", err)
		return shared.InternalError("list_failed", "failed to list bursts")
	}

	response := make([]dto.BurstResponse, len(bursts))
	for i, b := range bursts {
		response[i] = burstToResponse(b)
	}

	return c.JSON(http.StatusOK, dto.BurstListResponse{
		Bursts: response,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// @Summary      Get a burst
// @Description  Looks the burst up in the ledger, then in the recent results cache.
// @Tags         bursts
// @Produce      json
// @Param        id   path      string  true  "Burst ID"
// @Success      200  {object}  dto.BurstResponse
// @Failure      404  {object}  shared.APIError
// @Router       /camera/bursts/{id} [get]
func (h *Handler) GetBurst(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	if h.ledger != nil {
		b, err := h.ledger.Get(ctx, id)
		if err == nil {
			return c.JSON(http.StatusOK, burstToResponse(b))
		}
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("failed to get burst", "error", err, "burst_id", id)
			return shared.InternalError("get_failed", "failed to get burst")
		}
	}

	if h.results != nil {
		r, err := h.results.GetResult(ctx, id)
		if err == nil {
			return c.JSON(http.StatusOK, resultToBurst(*r))
		}
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("failed to get burst result", "error", err, "burst_id", id)
			return shared.InternalError("get_failed", "failed to get burst")
		}
	}

	return shared.NotFound("burst_not_found", "burst not found")
}

func statusToResponse(st session.Status) dto.StatusResponse {
	return dto.StatusResponse{
		State:      string(st.State),
		CameraID:   st.CameraID,
		BurstID:    st.BurstID,
		PlanLength: st.Progress.PlanLength,
		Completed:  st.Progress.Completed,
		LastError:  st.Progress.LastError,
		Error:      st.Error,
	}
}

func resultToResponse(r session.Result) dto.ResultResponse {
	failed := make([]dto.FrameFailure, len(r.Failed))
	for i, f := range r.Failed {
		failed[i] = dto.FrameFailure{Index: f.Index, Error: f.Error}
	}
	return dto.ResultResponse{
		BurstID:    r.ID,
		CameraID:   r.CameraID,
		Folder:     r.Folder,
		Outcome:    string(r.Outcome),
		Planned:    r.Planned,
		Files:      r.Files,
		Failed:     failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func burstToResponse(b *ledger.Burst) dto.BurstResponse {
	frames := make([]dto.FrameResponse, len(b.Frames))
	for i, f := range b.Frames {
		frames[i] = dto.FrameResponse{
			Sequence: f.Sequence,
			Path:     f.Path,
			Bytes:    f.Bytes,
			Error:    f.Error,
		}
	}
	failed := []int(b.FailedIndices)
	if failed == nil {
		failed = []int{}
	}
	return dto.BurstResponse{
		ID:            b.ID,
		CameraID:      b.CameraID,
		Folder:        b.Folder,
		Outcome:       b.Outcome,
		Planned:       b.Planned,
		Completed:     b.Completed,
		FailedIndices: failed,
		StartedAt:     b.StartedAt.Format(time.RFC3339),
		FinishedAt:    b.FinishedAt.Format(time.RFC3339),
		Frames:        frames,
	}
}

// resultToBurst renders a cached result in the ledger shape. Sizes are not
// known for cached results.
func resultToBurst(r session.Result) dto.BurstResponse {
	failed := make(map[int]string, len(r.Failed))
	for _, f := range r.Failed {
		failed[f.Index] = f.Error
	}

	var frames []dto.FrameResponse
	next := 0
	for i := 0; i < r.Planned; i++ {
		if msg, ok := failed[i]; ok {
			frames = append(frames, dto.FrameResponse{Sequence: i, Error: msg})
			continue
		}
		if next < len(r.Files) {
			frames = append(frames, dto.FrameResponse{Sequence: i, Path: r.Files[next]})
			next++
		}
	}

	return dto.BurstResponse{
		ID:            r.ID,
		CameraID:      r.CameraID,
		Folder:        r.Folder,
		Outcome:       string(r.Outcome),
		Planned:       r.Planned,
		Completed:     len(r.Files) + len(r.Failed),
		FailedIndices: r.FailedIndices(),
		StartedAt:     r.StartedAt.Format(time.RFC3339),
		FinishedAt:    r.FinishedAt.Format(time.RFC3339),
		Frames:        frames,
	}
}
