package burst

import (
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
)

// Manual bracket frames. The first frame is always auto-exposed at the top of
// the compensation range.
var manualBrackets = []struct {
	exposure    time.Duration
	sensitivity int
}{
	{exposure: 33 * time.Millisecond, sensitivity: 3200},
	{exposure: 66 * time.Millisecond, sensitivity: 6400},
}

type Builder struct {
	whiteBalance camera.WhiteBalance
}

func NewBuilder() *Builder {
	return &Builder{whiteBalance: camera.WhiteBalanceDaylight}
}

// Build returns the three-frame low-light plan: one auto-exposed frame at
// maximum compensation followed by two long manual exposures, all with torch
// assist.
func (b *Builder) Build(d camera.Descriptor, still *camera.StillTarget) (camera.Plan, error) {
	if still == nil {
		return nil, camera.ErrNoImageTarget
	}

	base := camera.FrameRequest{
		Flash:        camera.FlashOff,
		Focus:        camera.FocusAuto,
		WhiteBalance: b.whiteBalance,
		Intent:       camera.IntentStillCapture,
	}
	if d.Caps.Torch {
		base.Flash = camera.FlashTorch
	}
	if d.Caps.ContinuousFocus {
		base.Focus = camera.FocusContinuousPicture
	}

	plan := make(camera.Plan, 0, 1+len(manualBrackets))

	first := base
	first.AEMode = camera.AEModeOn
	first.AECompensation = d.Exposure.Max
	if d.Caps.ZeroShutterLag {
		first.Intent = camera.IntentZeroShutterLag
	}
	plan = append(plan, first)

	for _, bracket := range manualBrackets {
		req := base
		if d.Caps.ManualSensor {
			req.AEMode = camera.AEModeOff
			req.ExposureTime = bracket.exposure
			req.Sensitivity = clampSensitivity(d.Sensitivity, bracket.sensitivity)
		} else {
			req.AEMode = camera.AEModeOn
			req.AECompensation = d.Exposure.Max
			req.AELocked = true
		}
		plan = append(plan, req)
	}

	return plan, nil
}

func clampSensitivity(r camera.SensitivityRange, iso int) int {
	if r.Max == 0 {
		return iso
	}
	if iso > r.Max {
		return r.Max
	}
	if iso < r.Min {
		return r.Min
	}
	return iso
}
