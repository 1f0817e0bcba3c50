package session

import (
	"context"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/framesink"
)

type State string

const (
	StateClosed      State = "closed"
	StateOpening     State = "opening"
	StateConfiguring State = "configuring"
	StatePreviewing  State = "previewing"
	StateCapturing   State = "capturing"
)

type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
	OutcomeAborted  Outcome = "aborted"
)

// Status is a point-in-time snapshot readable from any goroutine.
type Status struct {
	State    State              `json:"state"`
	CameraID string             `json:"camera_id,omitempty"`
	BurstID  string             `json:"burst_id,omitempty"`
	Progress framesink.Progress `json:"progress"`
	Error    string             `json:"error,omitempty"`
}

type Result struct {
	ID         string              `json:"id"`
	CameraID   string              `json:"camera_id"`
	Folder     string              `json:"folder"`
	Planned    int                 `json:"planned"`
	Files      []string            `json:"files"`
	Failed     []framesink.Failure `json:"failed"`
	Outcome    Outcome             `json:"outcome"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// FailedIndices lists the sequence positions that produced no file.
func (r Result) FailedIndices() []int {
	indices := make([]int, 0, len(r.Failed))
	for _, f := range r.Failed {
		indices = append(indices, f.Index)
	}
	return indices
}

type NotificationKind string

const (
	NotifyState    NotificationKind = "state"
	NotifyProgress NotificationKind = "progress"
	NotifyResult   NotificationKind = "result"
	NotifyFault    NotificationKind = "fault"
)

type Notification struct {
	Kind   NotificationKind `json:"kind"`
	Status Status           `json:"status"`
	Result *Result          `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
	At     time.Time        `json:"at"`
}

// Burst is the caller's handle on one in-flight plan.
type Burst struct {
	id        string
	cameraID  string
	folder    string
	plan      camera.Plan
	startedAt time.Time
	sink      *framesink.Sink
	tracker   *framesink.Tracker

	done   chan struct{}
	result Result
}

func (b *Burst) ID() string {
	return b.id
}

func (b *Burst) Folder() string {
	return b.folder
}

func (b *Burst) Plan() camera.Plan {
	return append(camera.Plan(nil), b.plan...)
}

func (b *Burst) Done() <-chan struct{} {
	return b.done
}

// Result is only meaningful once Done is closed.
func (b *Burst) Result() Result {
	select {
	case <-b.done:
		return b.result
	default:
		return Result{ID: b.id, Folder: b.folder, Planned: len(b.plan)}
	}
}

func (b *Burst) Wait(ctx context.Context) (Result, error) {
	select {
	case <-b.done:
		return b.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (b *Burst) finish(outcome Outcome, at time.Time) Result {
	failed := b.tracker.Failures()
	if outcome == OutcomeComplete && len(failed) > 0 {
		outcome = OutcomePartial
	}
	b.result = Result{
		ID:         b.id,
		CameraID:   b.cameraID,
		Folder:     b.folder,
		Planned:    len(b.plan),
		Files:      b.tracker.Files(),
		Failed:     failed,
		Outcome:    outcome,
		StartedAt:  b.startedAt,
		FinishedAt: at,
	}
	close(b.done)
	return b.result
}
