package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/hardware/simulated"
	"github.com/eleven-am/burst-camera/internal/session"
)

func newTestOrchestrator(t *testing.T, root string) (*Orchestrator, *simulated.Manager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hw := simulated.New(simulated.Config{Log: logger})
	o := New(Config{
		Manager:     hw,
		PreviewSize: camera.Size{Width: 1280, Height: 720},
		CaptureRoot: root,
		Log:         logger,
	})
	t.Cleanup(func() {
		o.Close()
		hw.Wait()
	})
	return o, hw
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOrchestrator_InitializeSelectsRearRawCamera(t *testing.T) {
	o, _ := newTestOrchestrator(t, "")

	d, err := o.Initialize(nil)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if d.ID != "0" {
		t.Errorf("expected camera 0, got %s", d.ID)
	}

	again, err := o.Initialize(nil)
	if err != nil || again.ID != d.ID {
		t.Errorf("second Initialize should return the bound camera, got %v %v", again.ID, err)
	}
	if !o.Initialized() {
		t.Error("expected initialized")
	}
}

func TestOrchestrator_InitializeNoCamera(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := New(Config{Manager: simulated.New(simulated.Config{Cameras: []simulated.Camera{}, Log: logger}), Log: logger})
	defer o.Close()

	if _, err := o.Initialize(nil); !errors.Is(err, camera.ErrNoCameraAvailable) {
		t.Errorf("expected ErrNoCameraAvailable, got %v", err)
	}
	if o.IsCameraAvailable() {
		t.Error("expected camera unavailable")
	}
}

func TestOrchestrator_IsCameraAvailableSwallowsErrors(t *testing.T) {
	o, hw := newTestOrchestrator(t, "")
	if !o.IsCameraAvailable() {
		t.Error("expected camera available")
	}

	hw.SetFaults(simulated.Faults{EnumerateError: errors.New("service died")})
	if o.IsCameraAvailable() {
		t.Error("enumeration errors should report unavailable")
	}
}

func TestOrchestrator_RequiresInitialize(t *testing.T) {
	o, _ := newTestOrchestrator(t, "")
	ctx := testContext(t)

	if err := o.StartPreview(ctx); !errors.Is(err, camera.ErrNotReady) {
		t.Errorf("StartPreview: expected ErrNotReady, got %v", err)
	}
	if _, err := o.StartCapture(ctx, t.TempDir()); !errors.Is(err, camera.ErrNotReady) {
		t.Errorf("StartCapture: expected ErrNotReady, got %v", err)
	}
	if err := o.StopCapture(ctx); !errors.Is(err, camera.ErrNotReady) {
		t.Errorf("StopCapture: expected ErrNotReady, got %v", err)
	}
	if _, ok := o.Descriptor(); ok {
		t.Error("expected no descriptor")
	}
	if st := o.Status(); st.State != session.StateClosed {
		t.Errorf("expected closed, got %s", st.State)
	}

	o.Shutdown()
}

func TestOrchestrator_PreviewAndCapture(t *testing.T) {
	root := t.TempDir()
	o, hw := newTestOrchestrator(t, root)
	ctx := testContext(t)

	if _, err := o.Initialize(nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := o.StartPreview(ctx); err != nil {
		t.Fatalf("StartPreview failed: %v", err)
	}
	if err := o.StartPreview(ctx); err != nil {
		t.Fatalf("second StartPreview failed: %v", err)
	}
	if opens := hw.Stats().Opens; opens != 1 {
		t.Errorf("expected one open, got %d", opens)
	}

	b, err := o.StartCapture(ctx, "session1")
	if err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	if b.Folder() != filepath.Join(root, "session1") {
		t.Errorf("expected folder under capture root, got %s", b.Folder())
	}

	plan := b.Plan()
	if len(plan) != 3 || plan[0].AECompensation != 12 {
		t.Errorf("unexpected plan %+v", plan)
	}

	r, err := b.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if r.Outcome != session.OutcomeComplete || len(r.Files) != 3 {
		t.Errorf("unexpected result %+v", r)
	}
	for _, f := range r.Files {
		if !strings.HasPrefix(f, filepath.Join(root, "session1")) {
			t.Errorf("file %s outside destination", f)
		}
	}
}

func TestOrchestrator_EmptyFolder(t *testing.T) {
	o, _ := newTestOrchestrator(t, t.TempDir())
	if _, err := o.Initialize(nil); err != nil {
		t.Fatal(err)
	}
	if err := o.StartPreview(testContext(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := o.StartCapture(testContext(t), ""); !errors.Is(err, camera.ErrInvalidFolder) {
		t.Errorf("expected ErrInvalidFolder, got %v", err)
	}
}

func TestOrchestrator_StartPreviewReportsConfigureFailure(t *testing.T) {
	o, hw := newTestOrchestrator(t, "")
	hw.SetFaults(simulated.Faults{ConfigureError: errors.New("bad surface")})

	if _, err := o.Initialize(nil); err != nil {
		t.Fatal(err)
	}
	if err := o.StartPreview(testContext(t)); !errors.Is(err, camera.ErrConfigureFailed) {
		t.Errorf("expected ErrConfigureFailed, got %v", err)
	}

	o.Shutdown()
	hw.SetFaults(simulated.Faults{})
	if _, err := o.Initialize(nil); err != nil {
		t.Fatal(err)
	}
	if err := o.StartPreview(testContext(t)); err != nil {
		t.Errorf("reinitialize should recover, got %v", err)
	}
}

func TestOrchestrator_ShutdownAlwaysSucceeds(t *testing.T) {
	o, hw := newTestOrchestrator(t, "")
	o.Shutdown()

	if _, err := o.Initialize(nil); err != nil {
		t.Fatal(err)
	}
	if err := o.StartPreview(testContext(t)); err != nil {
		t.Fatal(err)
	}
	o.Shutdown()
	o.Shutdown()

	if o.Initialized() {
		t.Error("expected no bound camera")
	}
	if st := o.Status(); st.State != session.StateClosed || st.CameraID != "0" {
		t.Errorf("expected last status closed for camera 0, got %+v", st)
	}
	stats := hw.Stats()
	if stats.DevicesOpen != 0 || stats.SessionsOpen != 0 {
		t.Errorf("expected hardware released, got %+v", stats)
	}
}

func TestOrchestrator_NotificationsReachSubscribers(t *testing.T) {
	o, _ := newTestOrchestrator(t, t.TempDir())
	ch, unsubscribe := o.Subscribe(128)
	defer unsubscribe()

	if _, err := o.Initialize(nil); err != nil {
		t.Fatal(err)
	}
	if err := o.StartPreview(testContext(t)); err != nil {
		t.Fatal(err)
	}
	b, err := o.StartCapture(testContext(t), "take")
	if err != nil {
		t.Fatal(err)
	}

	timeout := time.After(3 * time.Second)
	for {
		select {
		case n := <-ch:
			if n.Kind == session.NotifyResult {
				if n.Result == nil || n.Result.ID != b.ID() {
					t.Fatalf("unexpected result notification %+v", n)
				}
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for result notification")
		}
	}
}

func TestBus_AttachAndClose(t *testing.T) {
	bus := NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var mu sync.Mutex
	var seen []session.NotificationKind
	got := make(chan struct{}, 4)
	done := bus.Attach(context.Background(), "test", ObserverFunc(func(_ context.Context, n session.Notification) {
		mu.Lock()
		seen = append(seen, n.Kind)
		mu.Unlock()
		got <- struct{}{}
	}))

	bus.Publish(session.Notification{Kind: session.NotifyState})
	bus.Publish(session.Notification{Kind: session.NotifyResult})
	<-got
	<-got

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer should exit when the bus closes")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != session.NotifyState || seen[1] != session.NotifyResult {
		t.Errorf("unexpected notifications %v", seen)
	}
	if bus.Subscribers() != 0 {
		t.Error("expected no subscribers after close")
	}
}

func TestBus_ObserverPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()

	got := make(chan session.NotificationKind, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus.Attach(ctx, "flaky", ObserverFunc(func(_ context.Context, n session.Notification) {
		if n.Kind == session.NotifyFault {
			panic("boom")
		}
		got <- n.Kind
	}))

	bus.Publish(session.Notification{Kind: session.NotifyFault})
	bus.Publish(session.Notification{Kind: session.NotifyProgress})

	select {
	case kind := <-got:
		if kind != session.NotifyProgress {
			t.Errorf("expected progress, got %s", kind)
		}
	case <-time.After(time.Second):
		t.Fatal("observer stopped after panic")
	}
}

func TestBus_SubscribeAfterClose(t *testing.T) {
	bus := NewBus(nil)
	bus.Close()

	ch, unsubscribe := bus.Subscribe(1)
	defer unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}
	bus.Publish(session.Notification{})
}

func TestOrchestrator_ResolveConfinesToRoot(t *testing.T) {
	root := t.TempDir()
	o, _ := newTestOrchestrator(t, root)

	tests := []struct {
		name    string
		folder  string
		want    string
		wantErr bool
	}{
		{name: "relative", folder: "session1", want: filepath.Join(root, "session1")},
		{name: "nested relative", folder: "a/../b", want: filepath.Join(root, "b")},
		{name: "absolute inside root", folder: filepath.Join(root, "take"), want: filepath.Join(root, "take")},
		{name: "parent escape", folder: "../outside", wantErr: true},
		{name: "deep escape", folder: "a/../../outside", wantErr: true},
		{name: "absolute outside root", folder: filepath.Dir(root), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.resolve(tt.folder)
			if tt.wantErr {
				if !errors.Is(err, camera.ErrInvalidFolder) {
					t.Errorf("expected ErrInvalidFolder, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOrchestrator_ResolveWithoutRoot(t *testing.T) {
	o, _ := newTestOrchestrator(t, "")
	got, err := o.resolve("/tmp/x/../burst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/tmp/burst" {
		t.Errorf("expected cleaned path, got %s", got)
	}
}
