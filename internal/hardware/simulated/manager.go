package simulated

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
)

var ErrUnknownCamera = errors.New("unknown camera")

type Camera struct {
	ID              string
	Characteristics camera.Characteristics
}

// DefaultCameras mirrors a typical phone: a RAW capable rear sensor and a
// JPEG only front sensor.
func DefaultCameras() []Camera {
	return []Camera{
		{
			ID: "0",
			Characteristics: camera.Characteristics{
				Facing: camera.FacingBack,
				Capabilities: []camera.Capability{
					camera.CapabilityRAW,
					camera.CapabilityManualSensor,
					camera.CapabilityContinuousFocus,
					camera.CapabilityTorch,
					camera.CapabilityZeroShutterLag,
				},
				Exposure:    camera.ExposureRange{Min: -12, Max: 12, Step: 1},
				Sensitivity: camera.SensitivityRange{Min: 50, Max: 6400},
				PreviewSizes: []camera.Size{
					{Width: 640, Height: 480},
					{Width: 1280, Height: 720},
					{Width: 1920, Height: 1080},
				},
				StillSizes: map[camera.PixelFormat][]camera.Size{
					camera.FormatRAW:  {{Width: 4032, Height: 3024}},
					camera.FormatJPEG: {{Width: 4032, Height: 3024}, {Width: 3840, Height: 2160}},
				},
			},
		},
		{
			ID: "1",
			Characteristics: camera.Characteristics{
				Facing:       camera.FacingFront,
				Capabilities: []camera.Capability{camera.CapabilityContinuousFocus},
				Exposure:     camera.ExposureRange{Min: -8, Max: 8, Step: 0.5},
				PreviewSizes: []camera.Size{{Width: 640, Height: 480}, {Width: 1280, Height: 720}},
				StillSizes: map[camera.PixelFormat][]camera.Size{
					camera.FormatJPEG: {{Width: 2592, Height: 1944}},
				},
			},
		},
	}
}

type Config struct {
	Cameras []Camera
	// Latency delays every asynchronous callback.
	Latency time.Duration
	// FrameInterval paces repeating preview frames.
	FrameInterval time.Duration
	Log           *slog.Logger
}

// Faults injects hardware failures. Zero value means healthy hardware.
type Faults struct {
	EnumerateError  error
	OpenError       error
	OpenDeviceError error
	ConfigureError  error
	CreateError     error
	RepeatingErrors int
	CaptureError    error
	BurstError      error
	FrameErrors     map[int]error
	DropFrames      []int
	DuplicateFrames bool
}

type Stats struct {
	Opens           int
	DevicesOpen     int
	SessionsOpen    int
	ImagesOpen      int
	Repeating       int
	RepeatingFailed int
	StopRepeating   int
	Captures        int
	Bursts          int
	Aborts          int
	LastRepeating   camera.FrameRequest
	LastPlan        camera.Plan
}

// Manager is an in-process camera service with asynchronous callbacks.
type Manager struct {
	cameras       []Camera
	latency       time.Duration
	frameInterval time.Duration
	log           *slog.Logger

	mu        sync.Mutex
	faults    Faults
	stats     Stats
	openGate  chan struct{}
	burstGate chan struct{}
	devices   []*device
	wg        sync.WaitGroup
}

func New(cfg Config) *Manager {
	if cfg.Cameras == nil {
		cfg.Cameras = DefaultCameras()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 100 * time.Millisecond
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Manager{
		cameras:       cfg.Cameras,
		latency:       cfg.Latency,
		frameInterval: cfg.FrameInterval,
		log:           cfg.Log.With("component", "simulated_camera"),
	}
}

func (m *Manager) SetFaults(f Faults) {
	m.mu.Lock()
	m.faults = f
	m.mu.Unlock()
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.LastPlan = append(camera.Plan(nil), m.stats.LastPlan...)
	return s
}

// HoldOpen parks open callbacks until ReleaseOpen.
func (m *Manager) HoldOpen() {
	m.mu.Lock()
	m.openGate = make(chan struct{})
	m.mu.Unlock()
}

func (m *Manager) ReleaseOpen() {
	m.mu.Lock()
	if m.openGate != nil {
		close(m.openGate)
		m.openGate = nil
	}
	m.mu.Unlock()
}

// HoldBursts parks burst frame delivery until ReleaseBursts.
func (m *Manager) HoldBursts() {
	m.mu.Lock()
	m.burstGate = make(chan struct{})
	m.mu.Unlock()
}

func (m *Manager) ReleaseBursts() {
	m.mu.Lock()
	if m.burstGate != nil {
		close(m.burstGate)
		m.burstGate = nil
	}
	m.mu.Unlock()
}

// Disconnect reports every open device as unplugged.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	devices := append([]*device(nil), m.devices...)
	m.mu.Unlock()

	for _, d := range devices {
		if d.isClosed() {
			continue
		}
		m.async(func() { d.cb(camera.Disconnected()) })
	}
}

// Wait blocks until every callback goroutine has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) CameraIDs() ([]string, error) {
	m.mu.Lock()
	err := m.faults.EnumerateError
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(m.cameras))
	for _, c := range m.cameras {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (m *Manager) Characteristics(id string) (camera.Characteristics, error) {
	for _, c := range m.cameras {
		if c.ID == id {
			return c.Characteristics, nil
		}
	}
	return camera.Characteristics{}, fmt.Errorf("%w: %s", ErrUnknownCamera, id)
}

func (m *Manager) Open(id string, cb camera.Callback) error {
	if _, err := m.Characteristics(id); err != nil {
		return err
	}

	m.mu.Lock()
	faults := m.faults
	gate := m.openGate
	m.stats.Opens++
	m.mu.Unlock()

	if faults.OpenError != nil {
		return faults.OpenError
	}

	m.async(func() {
		if gate != nil {
			<-gate
		}
		if faults.OpenDeviceError != nil {
			cb(camera.DeviceError(faults.OpenDeviceError))
			return
		}
		d := &device{id: id, manager: m, cb: cb}
		m.mu.Lock()
		m.stats.DevicesOpen++
		m.devices = append(m.devices, d)
		m.mu.Unlock()
		cb(camera.Opened(d))
	})
	return nil
}

func (m *Manager) async(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if m.latency > 0 {
			time.Sleep(m.latency)
		}
		fn()
	}()
}

func (m *Manager) snapshot() Faults {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faults
}

func (m *Manager) update(fn func(*Stats)) {
	m.mu.Lock()
	fn(&m.stats)
	m.mu.Unlock()
}

type device struct {
	id      string
	manager *Manager
	cb      camera.Callback

	mu     sync.Mutex
	closed bool
}

func (d *device) ID() string {
	return d.id
}

func (d *device) CreateSession(preview camera.PreviewSurface, previewSize camera.Size, still *camera.StillTarget, cb camera.Callback) error {
	if d.isClosed() {
		return errors.New("device closed")
	}

	faults := d.manager.snapshot()
	if faults.CreateError != nil {
		return faults.CreateError
	}

	d.manager.async(func() {
		if faults.ConfigureError != nil {
			cb(camera.ConfigureFailed(faults.ConfigureError))
			return
		}
		d.manager.update(func(s *Stats) { s.SessionsOpen++ })
		cb(camera.SessionConfigured(newSession(d, preview, previewSize, still)))
	})
	return nil
}

func (d *device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.manager.mu.Lock()
	d.manager.stats.DevicesOpen--
	d.manager.devices = slices.DeleteFunc(d.manager.devices, func(o *device) bool { return o == d })
	d.manager.mu.Unlock()
	return nil
}
