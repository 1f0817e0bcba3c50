package capture

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/burst-camera/internal/burst"
	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/session"
	"github.com/eleven-am/burst-camera/internal/worker"
)

type Config struct {
	Manager     camera.Manager
	Builder     *burst.Builder
	PreviewSize camera.Size
	OpenTimeout time.Duration
	// CaptureRoot anchors relative destination folders and, when set, confines
	// every destination to itself. Without it any path is accepted.
	CaptureRoot string
	Now         func() time.Time
	Log         *slog.Logger
}

// Orchestrator is the control surface over one camera. Its methods may be
// called from any goroutine.
type Orchestrator struct {
	manager     camera.Manager
	builder     *burst.Builder
	previewSize camera.Size
	openTimeout time.Duration
	root        string
	now         func() time.Time
	log         *slog.Logger
	selector    *camera.Selector
	bus         *Bus

	mu      sync.Mutex
	machine *session.Machine
	last    session.Status
}

func New(cfg Config) *Orchestrator {
	if cfg.Builder == nil {
		cfg.Builder = burst.NewBuilder()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.CaptureRoot != "" {
		if abs, err := filepath.Abs(cfg.CaptureRoot); err == nil {
			cfg.CaptureRoot = abs
		}
	}

	return &Orchestrator{
		manager:     cfg.Manager,
		builder:     cfg.Builder,
		previewSize: cfg.PreviewSize,
		openTimeout: cfg.OpenTimeout,
		root:        cfg.CaptureRoot,
		now:         cfg.Now,
		log:         cfg.Log.With("component", "capture_orchestrator"),
		selector:    camera.NewSelector(cfg.Manager, cfg.Log),
		bus:         NewBus(cfg.Log),
		last:        session.Status{State: session.StateClosed},
	}
}

func (o *Orchestrator) Bus() *Bus {
	return o.bus
}

// Initialize selects a camera and binds the preview surface. It does nothing
// while a camera is already bound.
func (o *Orchestrator) Initialize(preview camera.PreviewSurface) (camera.Descriptor, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.machine != nil {
		return o.machine.Descriptor(), nil
	}

	d, err := o.selector.Select()
	if err != nil {
		o.log.Warn("camera selection failed", "error", err)
		return camera.Descriptor{}, err
	}

	o.machine = session.New(session.Config{
		Manager:     o.manager,
		Descriptor:  d,
		Preview:     preview,
		PreviewSize: o.previewSize,
		Builder:     o.builder,
		Worker:      worker.New("camera-"+d.ID, o.log),
		OpenTimeout: o.openTimeout,
		Now:         o.now,
		Notify:      o.bus.Publish,
		Log:         o.log,
	})

	o.log.Info("camera initialized", "camera_id", d.ID, "facing", d.Facing, "raw", d.Caps.RAW)
	return d, nil
}

func (o *Orchestrator) Initialized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine != nil
}

// StartPreview drives the camera to Previewing and waits for it to get there.
func (o *Orchestrator) StartPreview(ctx context.Context) error {
	m, err := o.current()
	if err != nil {
		return err
	}

	if err := m.Open(ctx); err != nil {
		return err
	}

	st, err := m.WaitFor(ctx, session.StatePreviewing, session.StateCapturing, session.StateClosed)
	if err != nil {
		return err
	}
	if st == session.StateClosed {
		if fault := m.Err(); fault != nil {
			return fault
		}
		return camera.ErrNotReady
	}
	return nil
}

func (o *Orchestrator) StartCapture(ctx context.Context, folder string) (*session.Burst, error) {
	m, err := o.current()
	if err != nil {
		return nil, err
	}

	dest, err := o.resolve(folder)
	if err != nil {
		return nil, err
	}
	return m.StartCapture(ctx, dest)
}

func (o *Orchestrator) StopCapture(ctx context.Context) error {
	m, err := o.current()
	if err != nil {
		return err
	}
	return m.StopCapture(ctx)
}

// Shutdown releases the camera and its worker. It always succeeds.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	m := o.machine
	o.machine = nil
	o.mu.Unlock()

	if m == nil {
		return
	}
	m.Shutdown()

	o.mu.Lock()
	o.last = m.Status()
	o.mu.Unlock()
	o.log.Info("camera released", "camera_id", m.Descriptor().ID)
}

// Close shuts the camera down and ends every subscription.
func (o *Orchestrator) Close() {
	o.Shutdown()
	o.bus.Close()
}

func (o *Orchestrator) IsCameraAvailable() bool {
	return o.selector.Available()
}

func (o *Orchestrator) Status() session.Status {
	o.mu.Lock()
	m := o.machine
	last := o.last
	o.mu.Unlock()

	if m == nil {
		return last
	}
	return m.Status()
}

func (o *Orchestrator) Descriptor() (camera.Descriptor, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.machine == nil {
		return camera.Descriptor{}, false
	}
	return o.machine.Descriptor(), true
}

func (o *Orchestrator) Subscribe(buffer int) (<-chan session.Notification, func()) {
	return o.bus.Subscribe(buffer)
}

func (o *Orchestrator) current() (*session.Machine, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.machine == nil {
		return nil, camera.ErrNotReady
	}
	return o.machine, nil
}

func (o *Orchestrator) resolve(folder string) (string, error) {
	if folder == "" {
		return "", fmt.Errorf("%w: empty path", camera.ErrInvalidFolder)
	}
	if o.root == "" {
		return filepath.Clean(folder), nil
	}

	dest := folder
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(o.root, dest)
	}
	dest = filepath.Clean(dest)

	rel, err := filepath.Rel(o.root, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the capture root", camera.ErrInvalidFolder, folder)
	}
	return dest, nil
}
