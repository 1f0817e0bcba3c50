package camera

import "time"

// Manager is the platform camera service. Open is asynchronous: the result
// arrives as an Opened, Disconnected or DeviceError event on cb.
type Manager interface {
	CameraIDs() ([]string, error)
	Characteristics(id string) (Characteristics, error)
	Open(id string, cb Callback) error
}

type Device interface {
	ID() string
	// CreateSession reports SessionConfigured or ConfigureFailed on cb.
	CreateSession(preview PreviewSurface, previewSize Size, still *StillTarget, cb Callback) error
	Close() error
}

type Session interface {
	SetRepeating(req FrameRequest) error
	StopRepeating() error
	Capture(req FrameRequest, cb Callback) error
	// CaptureBurst reports FrameReady or CaptureFailed once per request in
	// submission order, then BurstComplete.
	CaptureBurst(plan Plan, cb Callback) error
	AbortCaptures() error
	Close() error
}

// Image is a platform frame buffer. It must be closed exactly once.
type Image interface {
	Bytes() []byte
	Format() PixelFormat
	Size() Size
	Timestamp() time.Time
	Close() error
}

// PreviewSurface is the handle supplied by the UI layer.
type PreviewSurface interface {
	Size() Size
	Present(frame []byte)
}

type Callback func(Event)

type EventKind string

const (
	EventOpened            EventKind = "opened"
	EventDisconnected      EventKind = "disconnected"
	EventDeviceError       EventKind = "device_error"
	EventSessionConfigured EventKind = "session_configured"
	EventConfigureFailed   EventKind = "configure_failed"
	EventFrameReady        EventKind = "frame_ready"
	EventCaptureFailed     EventKind = "capture_failed"
	EventBurstComplete     EventKind = "burst_complete"
)

type Event struct {
	Kind    EventKind
	Device  Device
	Session Session
	Index   int
	Image   Image
	Err     error
}

// Release closes any hardware resource carried by an event that will not be
// handled.
func (e Event) Release() {
	switch e.Kind {
	case EventOpened:
		if e.Device != nil {
			e.Device.Close()
		}
	case EventSessionConfigured:
		if e.Session != nil {
			e.Session.Close()
		}
	case EventFrameReady:
		if e.Image != nil {
			e.Image.Close()
		}
	}
}

func Opened(d Device) Event { return Event{Kind: EventOpened, Device: d} }

func Disconnected() Event { return Event{Kind: EventDisconnected} }

func DeviceError(err error) Event { return Event{Kind: EventDeviceError, Err: err} }

func SessionConfigured(s Session) Event { return Event{Kind: EventSessionConfigured, Session: s} }

func ConfigureFailed(err error) Event { return Event{Kind: EventConfigureFailed, Err: err} }

func FrameReady(index int, img Image) Event {
	return Event{Kind: EventFrameReady, Index: index, Image: img}
}

func CaptureFailed(index int, err error) Event {
	return Event{Kind: EventCaptureFailed, Index: index, Err: err}
}

func BurstComplete() Event { return Event{Kind: EventBurstComplete} }
