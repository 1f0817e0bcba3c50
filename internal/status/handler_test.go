package status

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eleven-am/burst-camera/internal/dto"
	"github.com/eleven-am/burst-camera/internal/session"
	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *Store) {
	t.Helper()
	store, _, _ := newTestStore(t)
	return NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	h.RegisterRoutes(e.Group("/v1/camera"))

	routePaths := make(map[string]bool)
	for _, r := range e.Routes() {
		routePaths[r.Path] = true
	}

	for _, path := range []string{
		"/v1/camera/snapshot",
		"/v1/camera/metrics/:id",
		"/v1/camera/metrics/:id/summary",
	} {
		if !routePaths[path] {
			t.Errorf("expected route %s to be registered", path)
		}
	}
}

func TestHandler_GetSnapshot(t *testing.T) {
	h, store := newTestHandler(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/camera/snapshot", nil)
	rec := httptest.NewRecorder()
	err := h.GetSnapshot(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any status, got %v", err)
	}

	if err := store.Save(context.Background(), session.Status{State: session.StatePreviewing, CameraID: "0"}); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	if err := h.GetSnapshot(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if snap.State != session.StatePreviewing || snap.CameraID != "0" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestHandler_GetMetrics(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()

	if err := store.RecordResult(ctx, testResult(session.OutcomePartial)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		query         string
		expectedHours int
	}{
		{name: "default window", query: "", expectedHours: 24},
		{name: "custom window", query: "?hours=48", expectedHours: 48},
		{name: "invalid window", query: "?hours=abc", expectedHours: 24},
		{name: "window too large", query: "?hours=500", expectedHours: 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/v1/camera/metrics/0"+tt.query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues("0")

			if err := h.GetMetrics(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
			}

			var response dto.MetricsListResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.CameraID != "0" {
				t.Errorf("expected camera 0, got %s", response.CameraID)
			}
			if response.Hours != tt.expectedHours {
				t.Errorf("expected hours %d, got %d", tt.expectedHours, response.Hours)
			}
			if len(response.Metrics) != 1 || response.Metrics[0].Partial != 1 {
				t.Errorf("unexpected metrics %+v", response.Metrics)
			}
		})
	}
}

func TestHandler_GetSummary(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()

	partial := testResult(session.OutcomePartial)
	complete := testResult(session.OutcomeComplete)
	complete.Failed = nil
	complete.Files = append(complete.Files, "/captures/take/frame_20240309_210405_1.dng")
	for _, r := range []session.Result{partial, complete} {
		if err := store.RecordResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/camera/metrics/0/summary", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("0")

	if err := h.GetSummary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var summary dto.SummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if summary.Period != "7d" || summary.TotalBursts != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.TotalFrames != 6 || summary.FailedFrames != 1 {
		t.Errorf("unexpected frame totals %+v", summary)
	}
	if summary.CompleteRatio != 50 {
		t.Errorf("expected complete ratio 50, got %v", summary.CompleteRatio)
	}
	if summary.AvgBurstMs != 900 {
		t.Errorf("expected avg 900ms, got %d", summary.AvgBurstMs)
	}
}

func TestHandler_GetSummaryEmpty(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/camera/metrics/9/summary", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("9")

	if err := h.GetSummary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var summary dto.SummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalBursts != 0 || summary.FailureRate != 0 || summary.CompleteRatio != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}
