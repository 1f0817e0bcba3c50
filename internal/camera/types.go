package camera

import (
	"fmt"
	"time"
)

type Facing string

const (
	FacingFront    Facing = "front"
	FacingBack     Facing = "back"
	FacingExternal Facing = "external"
)

type PixelFormat string

const (
	FormatRAW  PixelFormat = "raw"
	FormatJPEG PixelFormat = "jpeg"
)

// Extension returns the file extension used when frames of this format are
// written to disk.
func (f PixelFormat) Extension() string {
	if f == FormatRAW {
		return "dng"
	}
	return "jpg"
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) Area() int {
	return s.Width * s.Height
}

func (s Size) Ratio() float64 {
	if s.Height == 0 {
		return 0
	}
	return float64(s.Width) / float64(s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

type ExposureRange struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Step float64 `json:"step"`
}

type SensitivityRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Capabilities is queried once when a Descriptor is built. Request building
// consults it instead of probing the backend per request.
type Capabilities struct {
	RAW             bool `json:"raw"`
	ManualSensor    bool `json:"manual_sensor"`
	ContinuousFocus bool `json:"continuous_focus"`
	Torch           bool `json:"torch"`
	ZeroShutterLag  bool `json:"zero_shutter_lag"`
}

type Descriptor struct {
	ID           string                 `json:"id"`
	Facing       Facing                 `json:"facing"`
	Caps         Capabilities           `json:"capabilities"`
	Exposure     ExposureRange          `json:"exposure_range"`
	Sensitivity  SensitivityRange       `json:"sensitivity_range"`
	PreviewSizes []Size                 `json:"preview_sizes"`
	StillSizes   map[PixelFormat][]Size `json:"still_sizes"`
}

type Characteristics struct {
	Facing       Facing
	Capabilities []Capability
	Exposure     ExposureRange
	Sensitivity  SensitivityRange
	PreviewSizes []Size
	StillSizes   map[PixelFormat][]Size
}

type Capability string

const (
	CapabilityRAW             Capability = "raw"
	CapabilityManualSensor    Capability = "manual_sensor"
	CapabilityContinuousFocus Capability = "continuous_focus"
	CapabilityTorch           Capability = "torch"
	CapabilityZeroShutterLag  Capability = "zero_shutter_lag"
)

func NewDescriptor(id string, ch Characteristics) Descriptor {
	d := Descriptor{
		ID:           id,
		Facing:       ch.Facing,
		Exposure:     ch.Exposure,
		Sensitivity:  ch.Sensitivity,
		PreviewSizes: append([]Size(nil), ch.PreviewSizes...),
		StillSizes:   make(map[PixelFormat][]Size, len(ch.StillSizes)),
	}
	for format, sizes := range ch.StillSizes {
		d.StillSizes[format] = append([]Size(nil), sizes...)
	}
	for _, c := range ch.Capabilities {
		switch c {
		case CapabilityRAW:
			d.Caps.RAW = len(ch.StillSizes[FormatRAW]) > 0
		case CapabilityManualSensor:
			d.Caps.ManualSensor = true
		case CapabilityContinuousFocus:
			d.Caps.ContinuousFocus = true
		case CapabilityTorch:
			d.Caps.Torch = true
		case CapabilityZeroShutterLag:
			d.Caps.ZeroShutterLag = true
		}
	}
	return d
}

type AEMode string

const (
	AEModeOn  AEMode = "on"
	AEModeOff AEMode = "off"
)

type FlashMode string

const (
	FlashOff   FlashMode = "off"
	FlashTorch FlashMode = "torch"
)

type FocusMode string

const (
	FocusAuto              FocusMode = "auto"
	FocusContinuousPicture FocusMode = "continuous_picture"
)

type WhiteBalance string

const (
	WhiteBalanceAuto     WhiteBalance = "auto"
	WhiteBalanceDaylight WhiteBalance = "daylight"
)

type Intent string

const (
	IntentPreview        Intent = "preview"
	IntentStillCapture   Intent = "still_capture"
	IntentZeroShutterLag Intent = "zero_shutter_lag"
)

type FrameRequest struct {
	AEMode         AEMode        `json:"ae_mode"`
	ExposureTime   time.Duration `json:"exposure_time,omitempty"`
	Sensitivity    int           `json:"sensitivity,omitempty"`
	Flash          FlashMode     `json:"flash"`
	AECompensation int           `json:"ae_compensation"`
	AELocked       bool          `json:"ae_locked"`
	Focus          FocusMode     `json:"focus"`
	WhiteBalance   WhiteBalance  `json:"white_balance"`
	Intent         Intent        `json:"intent"`
}

func (r FrameRequest) Manual() bool {
	return r.AEMode == AEModeOff
}

// Plan is an ordered burst. Position is both shutter order and the index
// used in output file names.
type Plan []FrameRequest

type StillTarget struct {
	Format PixelFormat `json:"format"`
	Size   Size        `json:"size"`
}
