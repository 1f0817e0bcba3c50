package camera

import "errors"

var (
	ErrNoCameraAvailable = errors.New("no camera available")
	ErrLockTimeout       = errors.New("timed out waiting for camera open lock")
	ErrConfigureFailed   = errors.New("capture session configuration failed")
	ErrCaptureFailed     = errors.New("frame capture failed")
	ErrIOFailure         = errors.New("frame write failed")
	ErrNotReady          = errors.New("camera not ready")
	ErrInvalidFolder     = errors.New("invalid destination folder")
	ErrNoImageTarget     = errors.New("still capture target not configured")
	ErrDisconnected      = errors.New("camera disconnected")
	ErrShutdown          = errors.New("camera shut down")
	ErrFrameNotDelivered = errors.New("frame not delivered")
)
