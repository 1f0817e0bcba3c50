package bootstrap

import (
	"context"
	"log/slog"
	"net"

	"github.com/eleven-am/burst-camera/internal/capture"
	"github.com/eleven-am/burst-camera/internal/health"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func NewGRPCServer() *grpc.Server {
	return grpc.NewServer()
}

func ProvideHealthServer() *grpchealth.Server {
	return grpchealth.NewServer()
}

func ProvideHealthReporter(server *grpchealth.Server, orchestrator *capture.Orchestrator, logger *slog.Logger) *health.Reporter {
	return health.NewReporter(server, orchestrator, logger)
}

func RegisterHealthService(server *grpc.Server, healthServer *grpchealth.Server) {
	healthpb.RegisterHealthServer(server, healthServer)
}

func StartGRPCServer(lc fx.Lifecycle, server *grpc.Server, healthServer *grpchealth.Server, cfg *Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return err
			}
			go func() {
				logger.Info("gRPC server starting", "addr", cfg.GRPCAddr)
				if err := server.Serve(lis); err != nil {
					logger.Error("gRPC server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			healthServer.Shutdown()
			server.GracefulStop()
			return nil
		},
	})
}

var GRPCModule = fx.Options(
	fx.Provide(
		NewGRPCServer,
		ProvideHealthServer,
		ProvideHealthReporter,
	),
	fx.Invoke(RegisterHealthService),
	fx.Invoke(StartGRPCServer),
)
