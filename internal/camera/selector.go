package camera

import (
	"fmt"
	"log/slog"
)

type Selector struct {
	manager Manager
	log     *slog.Logger
}

func NewSelector(manager Manager, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{
		manager: manager,
		log:     log.With("component", "camera_selector"),
	}
}

// Select prefers a RAW-capable back camera, then any back camera, then the
// first enumerated one.
func (s *Selector) Select() (Descriptor, error) {
	ids, err := s.manager.CameraIDs()
	if err != nil {
		return Descriptor{}, fmt.Errorf("enumerate cameras: %w", err)
	}
	if len(ids) == 0 {
		return Descriptor{}, ErrNoCameraAvailable
	}

	var (
		first    *Descriptor
		back     *Descriptor
		rawBack  *Descriptor
		firstErr error
	)

	for _, id := range ids {
		ch, err := s.manager.Characteristics(id)
		if err != nil {
			s.log.Warn("camera characteristics unavailable", "camera_id", id, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("camera %s characteristics: %w", id, err)
			}
			continue
		}

		d := NewDescriptor(id, ch)
		if first == nil {
			first = &d
		}
		if d.Facing != FacingBack {
			continue
		}
		if back == nil {
			back = &d
		}
		if d.Caps.RAW && rawBack == nil {
			rawBack = &d
		}
	}

	switch {
	case rawBack != nil:
		return *rawBack, nil
	case back != nil:
		return *back, nil
	case first != nil:
		return *first, nil
	default:
		return Descriptor{}, firstErr
	}
}

func (s *Selector) Available() bool {
	ids, err := s.manager.CameraIDs()
	if err != nil {
		s.log.Debug("camera enumeration failed", "error", err)
		return false
	}
	return len(ids) > 0
}
