package api

import (
	"context"
	"errors"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/shared"
)

// cameraError maps the camera error taxonomy onto API errors.
func cameraError(err error) error {
	switch {
	case errors.Is(err, camera.ErrInvalidFolder):
		return shared.BadRequest("invalid_folder", err.Error())
	case errors.Is(err, camera.ErrNoImageTarget):
		return shared.BadRequest("no_image_target", err.Error())
	case errors.Is(err, camera.ErrNoCameraAvailable):
		return shared.NotFound("no_camera", err.Error())
	case errors.Is(err, camera.ErrNotReady):
		return shared.Conflict("not_ready", err.Error())
	case errors.Is(err, camera.ErrShutdown):
		return shared.Conflict("shut_down", err.Error())
	case errors.Is(err, camera.ErrLockTimeout):
		return shared.ServiceUnavailable("lock_timeout", err.Error())
	case errors.Is(err, camera.ErrDisconnected):
		return shared.ServiceUnavailable("disconnected", err.Error())
	case errors.Is(err, camera.ErrConfigureFailed):
		return shared.BadGateway("configure_failed", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return shared.ServiceUnavailable("timeout", "camera did not respond in time")
	default:
		return shared.InternalError("camera_error", err.Error())
	}
}
