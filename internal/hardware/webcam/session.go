package webcam

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"sync"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/pion/mediadevices"
)

var (
	errSessionClosed = errors.New("session closed")
	errFrameTimeout  = errors.New("timed out waiting for frame")
)

type latestFrame struct {
	img image.Image
	seq uint64
	at  time.Time
}

type session struct {
	manager *Manager
	track   *mediadevices.VideoTrack
	preview camera.PreviewSurface
	size    camera.Size

	mu        sync.Mutex
	cond      *sync.Cond
	latest    latestFrame
	readErr   error
	repeating bool
	closed    bool
	abort     chan struct{}
	done      chan struct{}
}

func newSession(m *Manager, track *mediadevices.VideoTrack, preview camera.PreviewSurface, size camera.Size) *session {
	s := &session{
		manager: m,
		track:   track,
		preview: preview,
		size:    size,
		abort:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	go s.previewLoop()
	return s
}

// pump keeps the most recent decoded frame. The reader reuses its buffer
// between reads, so each frame is copied before release.
func (s *session) pump() {
	reader := s.track.NewReader(true)
	for {
		img, release, err := reader.Read()
		var owned image.Image
		if err == nil {
			owned = cloneFrame(img)
			if release != nil {
				release()
			}
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.readErr = err
			s.cond.Broadcast()
			s.mu.Unlock()
			s.manager.log.Warn("frame read failed", "error", err)
			return
		}
		s.latest = latestFrame{img: owned, seq: s.latest.seq + 1, at: time.Now()}
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// cloneFrame copies img into memory owned by the caller.
func cloneFrame(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// next waits for a frame newer than after.
func (s *session) next(after uint64) (latestFrame, error) {
	deadline := time.AfterFunc(s.manager.frameTimeout, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer deadline.Stop()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.latest.seq <= after {
		if s.closed {
			return latestFrame{}, errSessionClosed
		}
		if s.readErr != nil {
			return latestFrame{}, s.readErr
		}
		if time.Since(start) >= s.manager.frameTimeout {
			return latestFrame{}, errFrameTimeout
		}
		s.cond.Wait()
	}
	return s.latest, nil
}

func (s *session) previewLoop() {
	ticker := time.NewTicker(s.manager.frameInterval)
	defer ticker.Stop()

	var shown uint64
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		frame := s.latest
		active := s.repeating
		s.mu.Unlock()

		if !active || s.preview == nil || frame.seq == shown {
			continue
		}
		data, err := encodeJPEG(frame.img, 70)
		if err != nil {
			s.manager.log.Debug("preview encode failed", "error", err)
			continue
		}
		s.preview.Present(data)
		shown = frame.seq
	}
}

func (s *session) SetRepeating(camera.FrameRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	s.repeating = true
	return nil
}

func (s *session) StopRepeating() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	s.repeating = false
	return nil
}

func (s *session) Capture(req camera.FrameRequest, cb camera.Callback) error {
	return s.CaptureBurst(camera.Plan{req}, func(ev camera.Event) {
		if ev.Kind != camera.EventBurstComplete {
			cb(ev)
		}
	})
}

func (s *session) CaptureBurst(plan camera.Plan, cb camera.Callback) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSessionClosed
	}
	abort := s.abort
	after := s.latest.seq
	s.mu.Unlock()

	go func() {
		for i := range plan {
			select {
			case <-abort:
				return
			default:
			}

			frame, err := s.next(after)
			if err != nil {
				cb(camera.CaptureFailed(i, err))
				continue
			}
			after = frame.seq

			data, err := encodeJPEG(frame.img, s.manager.quality)
			if err != nil {
				cb(camera.CaptureFailed(i, err))
				continue
			}
			b := frame.img.Bounds()
			cb(camera.FrameReady(i, &jpegImage{
				data:      data,
				size:      camera.Size{Width: b.Dx(), Height: b.Dy()},
				timestamp: frame.at,
			}))
		}

		select {
		case <-abort:
		default:
			cb(camera.BurstComplete())
		}
	}()
	return nil
}

func (s *session) AbortCaptures() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	close(s.abort)
	s.abort = make(chan struct{})
	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.abort)
	close(s.done)
	s.cond.Broadcast()
	s.mu.Unlock()

	return s.track.Close()
}

type jpegImage struct {
	data      []byte
	size      camera.Size
	timestamp time.Time
}

func (i *jpegImage) Bytes() []byte { return i.data }

func (i *jpegImage) Format() camera.PixelFormat { return camera.FormatJPEG }

func (i *jpegImage) Size() camera.Size { return i.size }

func (i *jpegImage) Timestamp() time.Time { return i.timestamp }

func (i *jpegImage) Close() error {
	i.data = nil
	return nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("empty frame")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
