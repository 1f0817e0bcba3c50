package webcam

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/driver"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/prop"
)

var (
	ErrDeviceNotFound = errors.New("video device not found")
	ErrNoVideoTrack   = errors.New("no video track")
)

var defaultSize = camera.Size{Width: 640, Height: 480}

var getUserMedia = mediadevices.GetUserMedia

type Config struct {
	// FrameInterval paces preview frames handed to the surface.
	FrameInterval time.Duration
	JPEGQuality   int
	// FrameTimeout bounds the wait for a fresh frame during a burst.
	FrameTimeout time.Duration
	Log          *slog.Logger
}

// Manager exposes V4L2/AVFoundation webcams through pion/mediadevices. Webcams
// have no RAW output, manual sensor control or torch, so the burst degrades
// to auto-exposed JPEG frames.
type Manager struct {
	frameInterval time.Duration
	quality       int
	frameTimeout  time.Duration
	log           *slog.Logger
}

func New(cfg Config) *Manager {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 100 * time.Millisecond
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 90
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = 2 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Manager{
		frameInterval: cfg.FrameInterval,
		quality:       cfg.JPEGQuality,
		frameTimeout:  cfg.FrameTimeout,
		log:           cfg.Log.With("component", "webcam"),
	}
}

func (m *Manager) CameraIDs() ([]string, error) {
	var ids []string
	for _, d := range mediadevices.EnumerateDevices() {
		if d.Kind == mediadevices.VideoInput {
			ids = append(ids, d.DeviceID)
		}
	}
	return ids, nil
}

func (m *Manager) Characteristics(id string) (camera.Characteristics, error) {
	drivers := driver.GetManager().Query(driver.FilterID(id))
	if len(drivers) == 0 {
		return camera.Characteristics{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	sizes := videoSizes(drivers[0].Properties())
	if len(sizes) == 0 {
		sizes = []camera.Size{defaultSize}
	}

	return camera.Characteristics{
		Facing:       camera.FacingExternal,
		PreviewSizes: sizes,
		StillSizes: map[camera.PixelFormat][]camera.Size{
			camera.FormatJPEG: sizes,
		},
	}, nil
}

func (m *Manager) Open(id string, cb camera.Callback) error {
	if len(driver.GetManager().Query(driver.FilterID(id))) == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	go cb(camera.Opened(&device{id: id, manager: m}))
	return nil
}

// videoSizes returns the distinct sizes a driver advertises, smallest first.
func videoSizes(props []prop.Media) []camera.Size {
	seen := make(map[camera.Size]bool)
	var sizes []camera.Size
	for _, p := range props {
		s := camera.Size{Width: p.Width, Height: p.Height}
		if s.Width <= 0 || s.Height <= 0 || seen[s] {
			continue
		}
		seen[s] = true
		sizes = append(sizes, s)
	}
	sort.Slice(sizes, func(i, j int) bool {
		return sizes[i].Area() < sizes[j].Area()
	})
	return sizes
}

type device struct {
	id      string
	manager *Manager
}

func (d *device) ID() string {
	return d.id
}

// CreateSession opens one stream at the still size; preview frames are
// scaled from the same stream.
func (d *device) CreateSession(preview camera.PreviewSurface, previewSize camera.Size, still *camera.StillTarget, cb camera.Callback) error {
	size := previewSize
	if still != nil {
		size = still.Size
	}

	go func() {
		stream, err := d.openStream(size)
		if err != nil {
			cb(camera.ConfigureFailed(err))
			return
		}

		tracks := stream.GetVideoTracks()
		if len(tracks) == 0 {
			cb(camera.ConfigureFailed(ErrNoVideoTrack))
			return
		}
		track, ok := tracks[0].(*mediadevices.VideoTrack)
		if !ok {
			tracks[0].Close()
			cb(camera.ConfigureFailed(ErrNoVideoTrack))
			return
		}

		cb(camera.SessionConfigured(newSession(d.manager, track, preview, size)))
	}()
	return nil
}

// openStream asks for the exact size first and retries with only the device
// constraint when the driver rejects it.
func (d *device) openStream(size camera.Size) (mediadevices.MediaStream, error) {
	stream, err := getUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(d.id)
			if size.Width > 0 && size.Height > 0 {
				c.Width = prop.Int(size.Width)
				c.Height = prop.Int(size.Height)
			}
		},
	})
	if err == nil {
		return stream, nil
	}
	d.manager.log.Warn("sized stream rejected, retrying with device defaults", "camera_id", d.id, "size", size.String(), "error", err)

	stream, err = getUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(d.id)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return stream, nil
}

func (d *device) Close() error {
	return nil
}
