package simulated

import (
	"bytes"
	"errors"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
)

type recorder struct {
	mu     sync.Mutex
	events []camera.Event
	ch     chan camera.Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan camera.Event, 64)}
}

func (r *recorder) callback(ev camera.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.ch <- ev
}

func (r *recorder) next(t *testing.T) camera.Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return camera.Event{}
	}
}

func newTestManager() *Manager {
	return New(Config{Log: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func openSession(t *testing.T, m *Manager, still *camera.StillTarget) (camera.Device, camera.Session) {
	t.Helper()
	rec := newRecorder()
	if err := m.Open("0", rec.callback); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ev := rec.next(t)
	if ev.Kind != camera.EventOpened {
		t.Fatalf("expected opened, got %s", ev.Kind)
	}

	if err := ev.Device.CreateSession(nil, camera.Size{Width: 1280, Height: 720}, still, rec.callback); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	ev2 := rec.next(t)
	if ev2.Kind != camera.EventSessionConfigured {
		t.Fatalf("expected session configured, got %s", ev2.Kind)
	}
	return ev.Device, ev2.Session
}

func TestManager_Enumerate(t *testing.T) {
	m := newTestManager()
	ids, err := m.CameraIDs()
	if err != nil {
		t.Fatalf("CameraIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "0" || ids[1] != "1" {
		t.Errorf("unexpected ids %v", ids)
	}

	if _, err := m.Characteristics("9"); !errors.Is(err, ErrUnknownCamera) {
		t.Errorf("expected ErrUnknownCamera, got %v", err)
	}
	if err := m.Open("9", func(camera.Event) {}); !errors.Is(err, ErrUnknownCamera) {
		t.Errorf("expected ErrUnknownCamera from Open, got %v", err)
	}
}

func TestManager_EnumerateError(t *testing.T) {
	m := newTestManager()
	boom := errors.New("service unavailable")
	m.SetFaults(Faults{EnumerateError: boom})

	if _, err := m.CameraIDs(); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestSession_BurstDeliversInOrder(t *testing.T) {
	m := newTestManager()
	still := &camera.StillTarget{Format: camera.FormatRAW, Size: camera.Size{Width: 4032, Height: 3024}}
	dev, sess := openSession(t, m, still)
	defer dev.Close()
	defer sess.Close()

	m.SetFaults(Faults{FrameErrors: map[int]error{1: errors.New("sensor timeout")}})

	plan := camera.Plan{{Sensitivity: 100}, {Sensitivity: 3200}, {Sensitivity: 6400}}
	rec := newRecorder()
	if err := sess.CaptureBurst(plan, rec.callback); err != nil {
		t.Fatalf("CaptureBurst failed: %v", err)
	}

	want := []camera.EventKind{
		camera.EventFrameReady,
		camera.EventCaptureFailed,
		camera.EventFrameReady,
		camera.EventBurstComplete,
	}
	for i, kind := range want {
		ev := rec.next(t)
		if ev.Kind != kind {
			t.Fatalf("event %d: expected %s, got %s", i, kind, ev.Kind)
		}
		if ev.Kind == camera.EventFrameReady {
			if ev.Index != i {
				t.Errorf("expected index %d, got %d", i, ev.Index)
			}
			if !bytes.HasPrefix(ev.Image.Bytes(), rawMagic) {
				t.Error("expected raw payload")
			}
			ev.Image.Close()
		}
	}

	stats := m.Stats()
	if stats.Bursts != 1 || len(stats.LastPlan) != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.ImagesOpen != 0 {
		t.Errorf("expected all images closed, got %d open", stats.ImagesOpen)
	}
}

func TestSession_JPEGFrames(t *testing.T) {
	m := newTestManager()
	still := &camera.StillTarget{Format: camera.FormatJPEG, Size: camera.Size{Width: 640, Height: 480}}
	dev, sess := openSession(t, m, still)
	defer dev.Close()
	defer sess.Close()

	rec := newRecorder()
	if err := sess.Capture(camera.FrameRequest{}, rec.callback); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	ev := rec.next(t)
	if ev.Kind != camera.EventFrameReady {
		t.Fatalf("expected frame, got %s", ev.Kind)
	}
	data := ev.Image.Bytes()
	if len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		t.Error("expected JPEG SOI marker")
	}
	ev.Image.Close()
	ev.Image.Close()

	if open := m.Stats().ImagesOpen; open != 0 {
		t.Errorf("double close should count once, got %d open", open)
	}
}

func TestSession_RepeatingFaults(t *testing.T) {
	m := newTestManager()
	dev, sess := openSession(t, m, nil)
	defer dev.Close()
	defer sess.Close()

	m.SetFaults(Faults{RepeatingErrors: 1})

	if err := sess.SetRepeating(camera.FrameRequest{Focus: camera.FocusContinuousPicture}); err == nil {
		t.Error("expected first repeating request to fail")
	}
	if err := sess.SetRepeating(camera.FrameRequest{Focus: camera.FocusAuto}); err != nil {
		t.Errorf("expected second repeating request to succeed: %v", err)
	}

	stats := m.Stats()
	if stats.Repeating != 1 || stats.RepeatingFailed != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.LastRepeating.Focus != camera.FocusAuto {
		t.Errorf("expected last repeating focus auto, got %s", stats.LastRepeating.Focus)
	}
}

func TestSession_AbortStopsDelivery(t *testing.T) {
	m := newTestManager()
	dev, sess := openSession(t, m, nil)
	defer dev.Close()

	m.HoldBursts()
	rec := newRecorder()
	if err := sess.CaptureBurst(camera.Plan{{}, {}}, rec.callback); err != nil {
		t.Fatalf("CaptureBurst failed: %v", err)
	}
	if err := sess.AbortCaptures(); err != nil {
		t.Fatalf("AbortCaptures failed: %v", err)
	}
	m.ReleaseBursts()
	m.Wait()

	if len(rec.events) != 0 {
		t.Errorf("expected no events after abort, got %d", len(rec.events))
	}

	sess.Close()
	if err := sess.SetRepeating(camera.FrameRequest{}); !errors.Is(err, errSessionClosed) {
		t.Errorf("expected errSessionClosed, got %v", err)
	}
	if m.Stats().SessionsOpen != 0 {
		t.Error("expected session count back to zero")
	}
}

func TestManager_Disconnect(t *testing.T) {
	m := newTestManager()
	rec := newRecorder()
	if err := m.Open("0", rec.callback); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	opened := rec.next(t)

	m.Disconnect()
	if ev := rec.next(t); ev.Kind != camera.EventDisconnected {
		t.Errorf("expected disconnected, got %s", ev.Kind)
	}

	opened.Device.Close()
	if m.Stats().DevicesOpen != 0 {
		t.Error("expected device count back to zero")
	}
}

func TestManager_OpenFaults(t *testing.T) {
	m := newTestManager()
	boom := errors.New("in use")
	m.SetFaults(Faults{OpenError: boom})
	if err := m.Open("0", func(camera.Event) {}); !errors.Is(err, boom) {
		t.Errorf("expected synchronous open error, got %v", err)
	}

	m.SetFaults(Faults{OpenDeviceError: boom})
	rec := newRecorder()
	if err := m.Open("0", rec.callback); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if ev := rec.next(t); ev.Kind != camera.EventDeviceError || !errors.Is(ev.Err, boom) {
		t.Errorf("expected device error event, got %+v", ev)
	}
}

func TestRenderJPEG_ScalesDown(t *testing.T) {
	data, err := renderJPEG(camera.Size{Width: 4032, Height: 3024}, camera.FrameRequest{}, 0)
	if err != nil {
		t.Fatalf("renderJPEG failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected encoded bytes")
	}
}

func centerLuma(t *testing.T, data []byte) uint8 {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	b := img.Bounds()
	return color.GrayModel.Convert(img.At(b.Dx()/2, b.Dy()/2)).(color.Gray).Y
}

func TestRenderJPEG_ManualExposureBrightens(t *testing.T) {
	size := camera.Size{Width: 320, Height: 240}

	auto, err := renderJPEG(size, camera.FrameRequest{AEMode: camera.AEModeOn}, 0)
	if err != nil {
		t.Fatalf("renderJPEG failed: %v", err)
	}
	manual, err := renderJPEG(size, camera.FrameRequest{
		AEMode:       camera.AEModeOff,
		ExposureTime: 66 * time.Millisecond,
		Sensitivity:  6400,
	}, 0)
	if err != nil {
		t.Fatalf("renderJPEG failed: %v", err)
	}

	if a, m := centerLuma(t, auto), centerLuma(t, manual); m <= a+50 {
		t.Errorf("expected long manual exposure to render brighter, auto=%d manual=%d", a, m)
	}
}
