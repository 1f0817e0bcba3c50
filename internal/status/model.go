package status

import (
	"strconv"
	"time"

	"github.com/eleven-am/burst-camera/internal/session"
)

const (
	statusKey   = "camera:status"
	EventsTopic = "camera:events"
)

// Snapshot is the last status the camera reported, as stored in redis.
type Snapshot struct {
	session.Status
	UpdatedAt time.Time `json:"updated_at"`
}

type Metrics struct {
	CameraID      string `json:"camera_id"`
	Date          string `json:"date"`
	Hour          int    `json:"hour"`
	Bursts        int64  `json:"bursts"`
	Complete      int64  `json:"complete"`
	Partial       int64  `json:"partial"`
	Aborted       int64  `json:"aborted"`
	FramesWritten int64  `json:"frames_written"`
	FramesFailed  int64  `json:"frames_failed"`
	Faults        int64  `json:"faults"`
	AvgBurstMs    int64  `json:"avg_burst_ms"`
}

func ResultRedisKey(burstID string) string {
	return "burst:" + burstID
}

func MetricsRedisKey(cameraID, date string, hour int) string {
	return "camera:" + cameraID + ":metrics:" + date + ":" + strconv.Itoa(hour)
}
