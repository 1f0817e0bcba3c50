package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/burst-camera/internal/session"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service reported for the camera.
const ServiceName = "burst.camera"

// Reporter keeps the gRPC health status in step with the camera. It is
// SERVING while a camera is bound and not closed by a fault.
type Reporter struct {
	server *grpchealth.Server
	camera CameraProbe
	logger *slog.Logger

	mu   sync.Mutex
	last healthpb.HealthCheckResponse_ServingStatus
}

func NewReporter(server *grpchealth.Server, camera CameraProbe, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{
		server: server,
		camera: camera,
		logger: logger.With("component", "grpc_health"),
		last:   healthpb.HealthCheckResponse_UNKNOWN,
	}
	r.Refresh()
	return r
}

func (r *Reporter) Observe(_ context.Context, _ session.Notification) {
	r.Refresh()
}

// Watch refreshes on a timer to catch changes that publish no notification,
// such as Initialize and Shutdown.
func (r *Reporter) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh()
		}
	}
}

func (r *Reporter) Refresh() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if r.camera.Initialized() {
		st := r.camera.Status()
		if st.State != session.StateClosed || st.Error == "" {
			status = healthpb.HealthCheckResponse_SERVING
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if status == r.last {
		return
	}
	r.last = status
	r.server.SetServingStatus(ServiceName, status)
	r.server.SetServingStatus("", status)
	r.logger.Info("serving status changed", "status", status.String())
}
