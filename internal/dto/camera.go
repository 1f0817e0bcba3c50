package dto

import (
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
)

type AvailabilityResponse struct {
	Available bool `json:"available" example:"true"`
}

type CameraResponse struct {
	Camera camera.Descriptor `json:"camera"`
}

type StatusResponse struct {
	State      string `json:"state" example:"capturing"`
	CameraID   string `json:"camera_id,omitempty" example:"0"`
	BurstID    string `json:"burst_id,omitempty" example:"3f2c1e9a-8d4b-4c55-9d7e-0a1b2c3d4e5f"`
	PlanLength int    `json:"plan_length" example:"3"`
	Completed  int    `json:"completed" example:"1"`
	LastError  string `json:"last_error,omitempty"`
	Error      string `json:"error,omitempty"`
}

type CaptureRequest struct {
	Folder string `json:"folder" example:"session_0012"`
}

type CaptureResponse struct {
	BurstID string                `json:"burst_id" example:"3f2c1e9a-8d4b-4c55-9d7e-0a1b2c3d4e5f"`
	Folder  string                `json:"folder" example:"/var/lib/burst/session_0012"`
	Plan    []camera.FrameRequest `json:"plan"`
}

type FrameFailure struct {
	Index int    `json:"index" example:"1"`
	Error string `json:"error" example:"frame capture failed: sensor timeout"`
}

type ResultResponse struct {
	BurstID    string         `json:"burst_id" example:"3f2c1e9a-8d4b-4c55-9d7e-0a1b2c3d4e5f"`
	CameraID   string         `json:"camera_id" example:"0"`
	Folder     string         `json:"folder" example:"/var/lib/burst/session_0012"`
	Outcome    string         `json:"outcome" example:"partial"`
	Planned    int            `json:"planned" example:"3"`
	Files      []string       `json:"files"`
	Failed     []FrameFailure `json:"failed"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

type FrameResponse struct {
	Sequence int    `json:"sequence" example:"0"`
	Path     string `json:"path,omitempty" example:"/var/lib/burst/session_0012/frame_20240309_210405_0.dng"`
	Bytes    int64  `json:"bytes" example:"24117248"`
	Error    string `json:"error,omitempty"`
}

type BurstResponse struct {
	ID            string          `json:"id" example:"3f2c1e9a-8d4b-4c55-9d7e-0a1b2c3d4e5f"`
	CameraID      string          `json:"camera_id" example:"0"`
	Folder        string          `json:"folder" example:"/var/lib/burst/session_0012"`
	Outcome       string          `json:"outcome" example:"complete"`
	Planned       int             `json:"planned" example:"3"`
	Completed     int             `json:"completed" example:"3"`
	FailedIndices []int           `json:"failed_indices"`
	StartedAt     string          `json:"started_at" example:"2024-03-09T21:04:05Z"`
	FinishedAt    string          `json:"finished_at" example:"2024-03-09T21:04:06Z"`
	Frames        []FrameResponse `json:"frames,omitempty"`
}

type BurstListResponse struct {
	Bursts []BurstResponse `json:"bursts"`
	Total  int64           `json:"total" example:"42"`
	Limit  int             `json:"limit" example:"20"`
	Offset int             `json:"offset" example:"0"`
}

type MetricsResponse struct {
	CameraID      string `json:"camera_id" example:"0"`
	Date          string `json:"date" example:"2024-03-09"`
	Hour          int    `json:"hour" example:"21"`
	Bursts        int64  `json:"bursts" example:"12"`
	Complete      int64  `json:"complete" example:"10"`
	Partial       int64  `json:"partial" example:"1"`
	Aborted       int64  `json:"aborted" example:"1"`
	FramesWritten int64  `json:"frames_written" example:"34"`
	FramesFailed  int64  `json:"frames_failed" example:"2"`
	Faults        int64  `json:"faults" example:"0"`
	AvgBurstMs    int64  `json:"avg_burst_ms" example:"840"`
}

type MetricsListResponse struct {
	CameraID string            `json:"camera_id" example:"0"`
	Hours    int               `json:"hours" example:"24"`
	Metrics  []MetricsResponse `json:"metrics"`
}

type SummaryResponse struct {
	CameraID      string  `json:"camera_id" example:"0"`
	Period        string  `json:"period" example:"7d"`
	TotalBursts   int64   `json:"total_bursts" example:"120"`
	TotalFrames   int64   `json:"total_frames" example:"358"`
	FailedFrames  int64   `json:"failed_frames" example:"2"`
	Faults        int64   `json:"faults" example:"1"`
	AvgBurstMs    int64   `json:"avg_burst_ms" example:"830"`
	FailureRate   float64 `json:"failure_rate" example:"0.55"`
	CompleteRatio float64 `json:"complete_ratio" example:"97.5"`
}
