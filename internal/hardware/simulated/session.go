package simulated

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
)

var (
	errSessionClosed   = errors.New("session closed")
	errRepeatingFailed = errors.New("repeating request rejected")
)

type session struct {
	dev         *device
	preview     camera.PreviewSurface
	previewSize camera.Size
	still       *camera.StillTarget

	mu          sync.Mutex
	closed      bool
	stopPreview chan struct{}
	abort       chan struct{}
}

func newSession(dev *device, preview camera.PreviewSurface, previewSize camera.Size, still *camera.StillTarget) *session {
	return &session{
		dev:         dev,
		preview:     preview,
		previewSize: previewSize,
		still:       still,
		abort:       make(chan struct{}),
	}
}

func (s *session) SetRepeating(req camera.FrameRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}

	m := s.dev.manager
	m.mu.Lock()
	if m.faults.RepeatingErrors > 0 {
		m.faults.RepeatingErrors--
		m.stats.RepeatingFailed++
		m.mu.Unlock()
		return errRepeatingFailed
	}
	m.stats.Repeating++
	m.stats.LastRepeating = req
	m.mu.Unlock()

	s.stopPreviewLocked()
	stop := make(chan struct{})
	s.stopPreview = stop
	go s.previewLoop(req, stop)
	return nil
}

func (s *session) StopRepeating() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	s.dev.manager.update(func(st *Stats) { st.StopRepeating++ })
	s.stopPreviewLocked()
	return nil
}

func (s *session) Capture(req camera.FrameRequest, cb camera.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}

	m := s.dev.manager
	faults := m.snapshot()
	if faults.CaptureError != nil {
		return faults.CaptureError
	}
	m.update(func(st *Stats) { st.Captures++ })

	m.async(func() {
		cb(camera.FrameReady(0, m.newFrame(s.stillTarget(), req, 0)))
	})
	return nil
}

func (s *session) CaptureBurst(plan camera.Plan, cb camera.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}

	m := s.dev.manager
	m.mu.Lock()
	faults := m.faults
	gate := m.burstGate
	if faults.BurstError == nil {
		m.stats.Bursts++
		m.stats.LastPlan = append(camera.Plan(nil), plan...)
	}
	m.mu.Unlock()
	if faults.BurstError != nil {
		return faults.BurstError
	}

	abort := s.abort
	target := s.stillTarget()
	plan = append(camera.Plan(nil), plan...)

	m.async(func() {
		if gate != nil {
			select {
			case <-gate:
			case <-abort:
				return
			}
		}

		for i, req := range plan {
			select {
			case <-abort:
				return
			default:
			}

			if slices.Contains(faults.DropFrames, i) {
				continue
			}
			if err := faults.FrameErrors[i]; err != nil {
				cb(camera.CaptureFailed(i, err))
				continue
			}
			cb(camera.FrameReady(i, m.newFrame(target, req, i)))
			if faults.DuplicateFrames {
				cb(camera.FrameReady(i, m.newFrame(target, req, i)))
			}
		}
		cb(camera.BurstComplete())
	})
	return nil
}

func (s *session) AbortCaptures() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	s.dev.manager.update(func(st *Stats) { st.Aborts++ })
	close(s.abort)
	s.abort = make(chan struct{})
	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stopPreviewLocked()
	close(s.abort)
	s.dev.manager.update(func(st *Stats) { st.SessionsOpen-- })
	return nil
}

func (s *session) stillTarget() camera.StillTarget {
	if s.still != nil {
		return *s.still
	}
	return camera.StillTarget{Format: camera.FormatJPEG, Size: s.previewSize}
}

func (s *session) stopPreviewLocked() {
	if s.stopPreview != nil {
		close(s.stopPreview)
		s.stopPreview = nil
	}
}

func (s *session) previewLoop(req camera.FrameRequest, stop <-chan struct{}) {
	if s.preview == nil {
		return
	}

	ticker := time.NewTicker(s.dev.manager.frameInterval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			data, err := renderJPEG(s.previewSize, req, tick)
			if err != nil {
				s.dev.manager.log.Warn("preview render failed", "error", err)
				continue
			}
			s.preview.Present(data)
			tick++
		}
	}
}
