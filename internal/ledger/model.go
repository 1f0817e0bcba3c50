package ledger

import (
	"time"

	"github.com/eleven-am/burst-camera/internal/shared"
)

type Burst struct {
	ID            string          `gorm:"primaryKey" json:"id"`
	CameraID      string          `gorm:"not null;index" json:"camera_id"`
	Folder        string          `gorm:"not null" json:"folder"`
	Outcome       string          `gorm:"not null;index" json:"outcome"`
	Planned       int             `json:"planned"`
	Completed     int             `json:"completed"`
	FailedIndices shared.IntSlice `gorm:"type:json" json:"failed_indices"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `gorm:"index" json:"finished_at"`
	Frames        []Frame         `gorm:"foreignKey:BurstID;constraint:OnDelete:CASCADE" json:"frames,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Frame struct {
	ID       string `gorm:"primaryKey" json:"id"`
	BurstID  string `gorm:"not null;index" json:"burst_id"`
	Sequence int    `gorm:"not null" json:"sequence"`
	Path     string `json:"path,omitempty"`
	Bytes    int64  `json:"bytes"`
	Error    string `json:"error,omitempty"`
}
