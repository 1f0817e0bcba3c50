package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
	"github.com/eleven-am/burst-camera/internal/capture"
	"github.com/eleven-am/burst-camera/internal/hardware/simulated"
	"github.com/eleven-am/burst-camera/internal/hardware/webcam"
	"github.com/eleven-am/burst-camera/internal/health"
	"github.com/eleven-am/burst-camera/internal/ledger"
	"github.com/eleven-am/burst-camera/internal/status"
	"github.com/eleven-am/burst-camera/internal/stream"
	"go.uber.org/fx"
)

const healthRefreshInterval = 2 * time.Second

func ProvideCameraManager(cfg *Config, logger *slog.Logger) (camera.Manager, error) {
	switch cfg.CameraBackend {
	case "simulated":
		return simulated.New(simulated.Config{
			FrameInterval: cfg.FrameInterval,
			Log:           logger,
		}), nil
	case "webcam":
		return webcam.New(webcam.Config{
			FrameInterval: cfg.FrameInterval,
			Log:           logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown camera backend %q", cfg.CameraBackend)
	}
}

func ProvidePreviewHub(cfg *Config, logger *slog.Logger) *stream.Hub {
	return stream.NewHub(camera.Size{Width: cfg.PreviewWidth, Height: cfg.PreviewHeight}, logger)
}

func ProvideOrchestrator(cfg *Config, manager camera.Manager, hub *stream.Hub, logger *slog.Logger) *capture.Orchestrator {
	return capture.New(capture.Config{
		Manager:     manager,
		PreviewSize: hub.Size(),
		OpenTimeout: cfg.OpenTimeout,
		CaptureRoot: cfg.CaptureRoot,
		Log:         logger,
	})
}

type ObserverParams struct {
	fx.In

	Lifecycle    fx.Lifecycle
	Orchestrator *capture.Orchestrator
	Hub          *stream.Hub
	Reporter     *health.Reporter
	StatusStore  *status.Store
	LedgerStore  *ledger.Store
	Logger       *slog.Logger
}

// AttachObservers subscribes the notification consumers to the camera bus
// for the lifetime of the app and releases the camera on stop.
func AttachObservers(p ObserverParams) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := p.Orchestrator.Bus()

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			bus.Attach(ctx, "preview_stream", p.Hub)
			bus.Attach(ctx, "grpc_health", p.Reporter)
			if p.StatusStore != nil {
				bus.Attach(ctx, "status_store", p.StatusStore)
			}
			if p.LedgerStore != nil {
				bus.Attach(ctx, "capture_ledger", p.LedgerStore)
			}
			go p.Reporter.Watch(ctx, healthRefreshInterval)

			if p.Orchestrator.IsCameraAvailable() {
				p.Logger.Info("camera available")
			} else {
				p.Logger.Warn("no camera available at startup")
			}
			return nil
		},
		OnStop: func(context.Context) error {
			p.Orchestrator.Close()
			cancel()
			p.Hub.Close()
			return nil
		},
	})
}

var CameraModule = fx.Options(
	fx.Provide(
		ProvideCameraManager,
		ProvidePreviewHub,
		ProvideOrchestrator,
	),
	fx.Invoke(AttachObservers),
)
