package bootstrap

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/eleven-am/burst-camera/docs"
	"github.com/eleven-am/burst-camera/internal/api"
	"github.com/eleven-am/burst-camera/internal/capture"
	"github.com/eleven-am/burst-camera/internal/ledger"
	"github.com/eleven-am/burst-camera/internal/status"
	"github.com/eleven-am/burst-camera/internal/stream"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	CameraHandler *api.Handler
	StreamHandler *stream.Handler
	StatusHandler *status.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	cameraGroup := e.Group("/v1/camera")
	params.CameraHandler.RegisterRoutes(cameraGroup)
	params.StreamHandler.RegisterRoutes(cameraGroup)
	if params.StatusHandler != nil {
		params.StatusHandler.RegisterRoutes(cameraGroup)
	}

	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
	e.GET("/asyncapi.yaml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", docs.AsyncAPISpec)
	})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

// ProvideCameraHandler passes untyped nils for disabled stores so the
// handler's nil checks see them.
func ProvideCameraHandler(
	orchestrator *capture.Orchestrator,
	hub *stream.Hub,
	ledgerStore *ledger.Store,
	statusStore *status.Store,
	logger *slog.Logger,
) *api.Handler {
	var bursts api.Ledger
	if ledgerStore != nil {
		bursts = ledgerStore
	}
	var results api.Results
	if statusStore != nil {
		results = statusStore
	}
	return api.NewHandler(orchestrator, hub, bursts, results, logger.With("handler", "camera"))
}

func ProvideStreamHandler(hub *stream.Hub, logger *slog.Logger) *stream.Handler {
	return stream.NewHandler(hub, logger.With("handler", "stream"))
}

func ProvideStatusHandler(store *status.Store, logger *slog.Logger) *status.Handler {
	if store == nil {
		return nil
	}
	return status.NewHandler(store, logger.With("handler", "status"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideCameraHandler,
		ProvideStreamHandler,
		ProvideStatusHandler,
	),
	fx.Invoke(RegisterRoutes),
)
