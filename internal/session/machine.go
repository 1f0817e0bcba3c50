package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/eleven-am/burst-camera/internal/burst"
	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/framesink"
	"github.com/eleven-am/burst-camera/internal/worker"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"golang.org/x/sync/semaphore"
)

const DefaultOpenTimeout = 2500 * time.Millisecond

const (
	eventOpen       = "open"
	eventOpened     = "opened"
	eventConfigured = "configured"
	eventCapture    = "capture"
	eventBurstDone  = "burst_done"
	eventAbort      = "abort"
	eventFail       = "fail"
	eventShutdown   = "shutdown"
)

var errUnknownDevice = errors.New("unknown device error")

type Config struct {
	Manager     camera.Manager
	Descriptor  camera.Descriptor
	Preview     camera.PreviewSurface
	PreviewSize camera.Size
	Builder     *burst.Builder
	Worker      *worker.Worker
	OpenTimeout time.Duration
	Now         func() time.Time
	// Notify is called on the worker and must not block.
	Notify func(Notification)
	Log    *slog.Logger
}

// Machine owns one camera device and its capture session. Every field below
// mu is touched only from the worker goroutine.
type Machine struct {
	manager     camera.Manager
	descriptor  camera.Descriptor
	preview     camera.PreviewSurface
	target      camera.Size
	builder     *burst.Builder
	worker      *worker.Worker
	openTimeout time.Duration
	now         func() time.Time
	notify      func(Notification)
	log         *slog.Logger
	lock        *semaphore.Weighted

	fsm         *fsm.FSM
	gen         uint64
	lockHeld    bool
	device      camera.Device
	session     camera.Session
	previewSize camera.Size
	still       *camera.StillTarget
	repeating   bool
	active      *Burst
	terminal    bool
	shut        bool

	mu      sync.RWMutex
	status  Status
	lastErr error
	changed chan struct{}
}

func New(cfg Config) *Machine {
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Builder == nil {
		cfg.Builder = burst.NewBuilder()
	}
	if cfg.Notify == nil {
		cfg.Notify = func(Notification) {}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Worker == nil {
		cfg.Worker = worker.New("camera", cfg.Log)
	}
	if cfg.PreviewSize == (camera.Size{}) && cfg.Preview != nil {
		cfg.PreviewSize = cfg.Preview.Size()
	}

	m := &Machine{
		manager:     cfg.Manager,
		descriptor:  cfg.Descriptor,
		preview:     cfg.Preview,
		target:      cfg.PreviewSize,
		builder:     cfg.Builder,
		worker:      cfg.Worker,
		openTimeout: cfg.OpenTimeout,
		now:         cfg.Now,
		notify:      cfg.Notify,
		log:         cfg.Log.With("component", "camera_session", "camera_id", cfg.Descriptor.ID),
		lock:        semaphore.NewWeighted(1),
		status:      Status{State: StateClosed, CameraID: cfg.Descriptor.ID},
		changed:     make(chan struct{}),
	}

	active := []string{string(StateOpening), string(StateConfiguring), string(StatePreviewing), string(StateCapturing)}
	m.fsm = fsm.NewFSM(
		string(StateClosed),
		fsm.Events{
			{Name: eventOpen, Src: []string{string(StateClosed)}, Dst: string(StateOpening)},
			{Name: eventOpened, Src: []string{string(StateOpening)}, Dst: string(StateConfiguring)},
			{Name: eventConfigured, Src: []string{string(StateConfiguring)}, Dst: string(StatePreviewing)},
			{Name: eventCapture, Src: []string{string(StatePreviewing)}, Dst: string(StateCapturing)},
			{Name: eventBurstDone, Src: []string{string(StateCapturing)}, Dst: string(StatePreviewing)},
			{Name: eventAbort, Src: []string{string(StateCapturing)}, Dst: string(StatePreviewing)},
			{Name: eventFail, Src: active, Dst: string(StateClosed)},
			{Name: eventShutdown, Src: active, Dst: string(StateClosed)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.entered(State(e.Src), State(e.Dst), e.Event)
			},
		},
	)

	m.worker.Start()
	return m
}

func (m *Machine) Descriptor() camera.Descriptor {
	return m.descriptor
}

func (m *Machine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Machine) State() State {
	return m.Status().State
}

// Err returns the last fault that closed the device, if any.
func (m *Machine) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// WaitFor blocks until the machine is in one of states or ctx ends.
func (m *Machine) WaitFor(ctx context.Context, states ...State) (State, error) {
	for {
		m.mu.RLock()
		current := m.status.State
		changed := m.changed
		m.mu.RUnlock()

		if slices.Contains(states, current) {
			return current, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return current, ctx.Err()
		}
	}
}

// Open requests Closed -> Opening. It returns once the platform open has been
// issued; progress towards Previewing is observed with WaitFor. In any state
// other than Closed it does nothing.
func (m *Machine) Open(ctx context.Context) error {
	acquireCtx, cancel := context.WithTimeout(ctx, m.openTimeout)
	defer cancel()

	if err := m.lock.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Warn("open lock timeout", "timeout", m.openTimeout)
		return camera.ErrLockTimeout
	}

	// From here the queued task owns the lock.
	err := m.worker.Do(ctx, m.beginOpen)
	if errors.Is(err, worker.ErrStopped) {
		m.lock.Release(1)
		return camera.ErrShutdown
	}
	return err
}

// StartCapture submits the burst plan and returns a handle that completes
// when every frame has been accounted for.
func (m *Machine) StartCapture(ctx context.Context, folder string) (*Burst, error) {
	var b *Burst
	err := m.worker.Do(ctx, func() error {
		var err error
		b, err = m.beginCapture(folder)
		return err
	})
	if errors.Is(err, worker.ErrStopped) {
		return nil, camera.ErrShutdown
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// StopCapture aborts an in-flight burst and resumes preview. Frames not yet
// delivered are reported as failed.
func (m *Machine) StopCapture(ctx context.Context) error {
	err := m.worker.Do(ctx, m.abortCapture)
	if errors.Is(err, worker.ErrStopped) {
		return camera.ErrShutdown
	}
	return err
}

// Shutdown releases the session, the device and the worker. It is safe from
// any state, concurrently with Open, and more than once.
func (m *Machine) Shutdown() {
	err := m.worker.Do(context.Background(), func() error {
		m.shutdown()
		return nil
	})
	if err != nil && !errors.Is(err, worker.ErrStopped) {
		m.log.Error("shutdown task failed", "error", err)
	}
	m.worker.Stop()
}

func (m *Machine) current() State {
	return State(m.fsm.Current())
}

func (m *Machine) fire(event string) {
	err := m.fsm.Event(context.Background(), event)
	var noop fsm.NoTransitionError
	if err != nil && !errors.As(err, &noop) {
		m.log.Error("invalid transition", "event", event, "state", m.current(), "error", err)
	}
}

func (m *Machine) entered(from, to State, event string) {
	m.log.Info("state changed", "from", from, "to", to, "event", event)

	m.mu.Lock()
	m.status.State = to
	close(m.changed)
	m.changed = make(chan struct{})
	st := m.status
	m.mu.Unlock()

	m.notify(Notification{Kind: NotifyState, Status: st, At: m.now()})
}

func (m *Machine) setError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.status.Error = ""
	if err != nil {
		m.status.Error = err.Error()
	}
	m.mu.Unlock()
}

func (m *Machine) trackProgress(b *Burst) Status {
	m.mu.Lock()
	m.status.BurstID = b.id
	m.status.Progress = b.tracker.Progress()
	st := m.status
	m.mu.Unlock()
	return st
}

func (m *Machine) releaseLock() {
	if m.lockHeld {
		m.lockHeld = false
		m.lock.Release(1)
	}
}

// callback routes hardware events onto the worker, tagged with the
// generation and burst they belong to.
func (m *Machine) callback(gen uint64, burstID string) camera.Callback {
	return func(ev camera.Event) {
		if !m.worker.Post(func() { m.handle(gen, burstID, ev) }) {
			ev.Release()
		}
	}
}

func discard(ev camera.Event) {
	ev.Release()
}

// handle is the single dispatch point for hardware events. Events from an
// earlier generation or a finished burst are released and dropped.
func (m *Machine) handle(gen uint64, burstID string, ev camera.Event) {
	if gen != m.gen || (burstID != "" && (m.active == nil || m.active.id != burstID)) {
		m.log.Debug("stale event dropped", "event", ev.Kind, "index", ev.Index, "burst_id", burstID)
		ev.Release()
		return
	}

	switch ev.Kind {
	case camera.EventOpened:
		m.onOpened(ev.Device)
	case camera.EventDisconnected:
		m.fail(camera.ErrDisconnected, false)
	case camera.EventDeviceError:
		err := ev.Err
		if err == nil {
			err = errUnknownDevice
		}
		m.fail(fmt.Errorf("device error: %w", err), false)
	case camera.EventSessionConfigured:
		m.onConfigured(ev.Session)
	case camera.EventConfigureFailed:
		m.fail(fmt.Errorf("%w: %v", camera.ErrConfigureFailed, ev.Err), true)
	case camera.EventFrameReady:
		m.onFrame(ev.Index, ev.Image)
	case camera.EventCaptureFailed:
		m.onFrameFailed(ev.Index, ev.Err)
	case camera.EventBurstComplete:
		m.onBurstComplete()
	default:
		ev.Release()
	}
}

func (m *Machine) beginOpen() error {
	if m.shut {
		m.lock.Release(1)
		return camera.ErrShutdown
	}
	if m.current() != StateClosed {
		m.lock.Release(1)
		return nil
	}
	if m.terminal {
		m.lock.Release(1)
		return m.Err()
	}

	m.lockHeld = true
	m.gen++
	m.setError(nil)
	m.fire(eventOpen)

	if err := m.manager.Open(m.descriptor.ID, m.callback(m.gen, "")); err != nil {
		err = fmt.Errorf("open camera %s: %w", m.descriptor.ID, err)
		m.fail(err, false)
		return err
	}
	return nil
}

func (m *Machine) onOpened(d camera.Device) {
	if d == nil {
		return
	}
	if m.current() != StateOpening {
		d.Close()
		return
	}

	m.releaseLock()
	m.device = d
	m.fire(eventOpened)

	m.previewSize = camera.OptimalSize(m.descriptor.PreviewSizes, m.target)
	m.still = camera.StillTargetFor(m.descriptor, m.previewSize)

	stillFormat := "none"
	if m.still != nil {
		stillFormat = string(m.still.Format) + " " + m.still.Size.String()
	}
	m.log.Info("configuring session", "preview", m.previewSize.String(), "still", stillFormat)

	if err := d.CreateSession(m.preview, m.previewSize, m.still, m.callback(m.gen, "")); err != nil {
		m.fail(fmt.Errorf("%w: %v", camera.ErrConfigureFailed, err), true)
	}
}

func (m *Machine) onConfigured(s camera.Session) {
	if s == nil {
		return
	}
	if m.current() != StateConfiguring {
		s.Close()
		return
	}

	m.session = s
	m.fire(eventConfigured)
	m.startRepeating()
}

func (m *Machine) previewRequest() camera.FrameRequest {
	req := camera.FrameRequest{
		AEMode:       camera.AEModeOn,
		Flash:        camera.FlashOff,
		Focus:        camera.FocusAuto,
		WhiteBalance: camera.WhiteBalanceAuto,
		Intent:       camera.IntentPreview,
	}
	if m.descriptor.Caps.ContinuousFocus {
		req.Focus = camera.FocusContinuousPicture
	}
	return req
}

// startRepeating falls back to plain auto focus, then to a single capture.
// None of the fallbacks change state.
func (m *Machine) startRepeating() {
	req := m.previewRequest()

	err := m.session.SetRepeating(req)
	if err == nil {
		m.repeating = true
		return
	}
	m.log.Warn("repeating preview rejected", "focus", req.Focus, "error", err)

	if req.Focus != camera.FocusAuto {
		req.Focus = camera.FocusAuto
		if err = m.session.SetRepeating(req); err == nil {
			m.repeating = true
			return
		}
		m.log.Warn("repeating preview rejected", "focus", req.Focus, "error", err)
	}

	if err := m.session.Capture(req, discard); err != nil {
		m.log.Error("single preview capture failed", "error", err)
	}
}

func (m *Machine) beginCapture(folder string) (*Burst, error) {
	if m.current() != StatePreviewing || m.session == nil {
		return nil, camera.ErrNotReady
	}
	if err := framesink.EnsureFolder(folder); err != nil {
		return nil, err
	}
	plan, err := m.builder.Build(m.descriptor, m.still)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	b := &Burst{
		id:        id,
		cameraID:  m.descriptor.ID,
		folder:    folder,
		plan:      plan,
		startedAt: m.now(),
		sink:      framesink.New(framesink.Config{Folder: folder, Now: m.now, Log: m.log.With("burst_id", id)}),
		tracker:   framesink.NewTracker(len(plan)),
		done:      make(chan struct{}),
	}

	if m.repeating {
		if err := m.session.StopRepeating(); err != nil {
			m.log.Warn("stop repeating failed", "error", err)
		}
		m.repeating = false
	}

	m.active = b
	m.trackProgress(b)
	m.fire(eventCapture)

	m.log.Info("burst submitted", "burst_id", b.id, "frames", len(plan), "folder", folder)
	if err := m.session.CaptureBurst(plan, m.callback(m.gen, b.id)); err != nil {
		m.log.Error("burst submission failed", "burst_id", b.id, "error", err)
		reason := fmt.Errorf("%w: %v", camera.ErrCaptureFailed, err)
		for _, i := range b.tracker.Missing() {
			b.tracker.Fail(i, reason)
		}
		m.advance(b)
	}
	return b, nil
}

func (m *Machine) onFrame(index int, img camera.Image) {
	b := m.active
	if img == nil {
		return
	}
	if b == nil || !b.tracker.Accepts(index) {
		m.log.Warn("unexpected frame dropped", "index", index)
		img.Close()
		return
	}

	path, err := b.sink.Write(img, index)
	if err != nil {
		b.tracker.Fail(index, err)
	} else {
		b.tracker.Succeed(index, path)
	}
	m.advance(b)
}

func (m *Machine) onFrameFailed(index int, err error) {
	b := m.active
	if b == nil {
		return
	}
	if err == nil {
		err = camera.ErrCaptureFailed
	} else if !errors.Is(err, camera.ErrCaptureFailed) {
		err = fmt.Errorf("%w: %v", camera.ErrCaptureFailed, err)
	}
	if !b.tracker.Fail(index, err) {
		m.log.Warn("duplicate frame failure ignored", "burst_id", b.id, "index", index)
		return
	}

	m.log.Warn("frame capture failed", "burst_id", b.id, "index", index, "error", err)
	m.advance(b)
}

// onBurstComplete only runs when frames are still outstanding; a burst whose
// frames all arrived has already finished and its completion is stale.
func (m *Machine) onBurstComplete() {
	b := m.active
	if b == nil {
		return
	}
	missing := b.tracker.Missing()
	m.log.Warn("burst completed with undelivered frames", "burst_id", b.id, "missing", missing)
	for _, i := range missing {
		b.tracker.Fail(i, camera.ErrFrameNotDelivered)
	}
	m.advance(b)
}

func (m *Machine) advance(b *Burst) {
	st := m.trackProgress(b)
	m.notify(Notification{Kind: NotifyProgress, Status: st, At: m.now()})

	if !b.tracker.Done() {
		return
	}
	m.finish(b, OutcomeComplete)
	m.fire(eventBurstDone)
	m.startRepeating()
}

func (m *Machine) finish(b *Burst, outcome Outcome) {
	m.active = nil
	r := b.finish(outcome, m.now())

	m.log.Info("burst finished", "burst_id", b.id, "outcome", r.Outcome, "files", len(r.Files), "failed", len(r.Failed))
	m.notify(Notification{Kind: NotifyResult, Status: m.Status(), Result: &r, At: r.FinishedAt})
}

// abandon accounts for every outstanding frame with reason and finishes the
// burst with outcome.
func (m *Machine) abandon(b *Burst, reason error, outcome Outcome) {
	for _, i := range b.tracker.Missing() {
		b.tracker.Fail(i, reason)
	}
	m.trackProgress(b)
	m.finish(b, outcome)
}

func (m *Machine) abortCapture() error {
	switch m.current() {
	case StatePreviewing:
		return nil
	case StateCapturing:
	default:
		return camera.ErrNotReady
	}

	if err := m.session.AbortCaptures(); err != nil {
		m.log.Warn("abort captures failed", "error", err)
	}
	if b := m.active; b != nil {
		m.abandon(b, fmt.Errorf("%w: capture stopped", camera.ErrFrameNotDelivered), OutcomeAborted)
	}
	m.fire(eventAbort)
	m.startRepeating()
	return nil
}

// release drops every hardware handle and invalidates outstanding callbacks.
// An in-flight burst ends with outcome.
func (m *Machine) release(reason error, outcome Outcome) {
	m.gen++

	if b := m.active; b != nil {
		if m.session != nil {
			if err := m.session.AbortCaptures(); err != nil {
				m.log.Debug("abort captures failed", "error", err)
			}
		}
		m.abandon(b, reason, outcome)
	}
	if m.session != nil {
		if err := m.session.Close(); err != nil {
			m.log.Warn("session close failed", "error", err)
		}
		m.session = nil
	}
	m.repeating = false
	if m.device != nil {
		if err := m.device.Close(); err != nil {
			m.log.Warn("device close failed", "error", err)
		}
		m.device = nil
	}
	m.still = nil
	m.releaseLock()
}

func (m *Machine) fail(err error, terminal bool) {
	m.log.Error("camera fault", "state", m.current(), "error", err)

	m.release(err, OutcomePartial)
	m.terminal = m.terminal || terminal
	m.setError(err)
	if m.current() != StateClosed {
		m.fire(eventFail)
	}
	m.notify(Notification{Kind: NotifyFault, Status: m.Status(), Error: err.Error(), At: m.now()})
}

func (m *Machine) shutdown() {
	if m.shut {
		return
	}
	m.shut = true
	m.release(camera.ErrShutdown, OutcomeAborted)
	if m.current() != StateClosed {
		m.fire(eventShutdown)
	}
	m.log.Info("camera shut down")
}
