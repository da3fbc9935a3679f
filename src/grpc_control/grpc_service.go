package grpc_control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// -----------------------------------------------------------------------------
// GRPCService handles gRPC server lifecycle
// -----------------------------------------------------------------------------

type GRPCService struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	control  *ControlService
	logger   *logger.Logger
	running  atomic.Bool
}

// -----------------------------------------------------------------------------

// NewGRPCService binds grpc_host:grpc_port and registers the control and
// health services. Serving starts with Start.
func NewGRPCService(cfg *models.MConfig, control *ControlService, log *logger.Logger) (*GRPCService, error) {
	address := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(10*1024*1024),
		grpc.MaxSendMsgSize(10*1024*1024),
	)
	RegisterControlServer(server, control)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	return &GRPCService{
		server:   server,
		listener: listener,
		health:   healthServer,
		control:  control,
		logger:   log,
	}, nil
}

// -----------------------------------------------------------------------------

// Addr is the bound listen address.
func (g *GRPCService) Addr() string {
	return g.listener.Addr().String()
}

// Start serves in the background.
func (g *GRPCService) Start() {
	g.health.SetServingStatus(ControlServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	g.running.Store(true)

	go func() {
		if err := g.server.Serve(g.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			g.logger.Error("gRPC server failed: %v", err)
		}
		g.running.Store(false)
	}()

	g.logger.Info("gRPC service started on %s", g.Addr())
}

// -----------------------------------------------------------------------------

// Stop drains in-flight calls, forcing the stop when ctx expires first.
func (g *GRPCService) Stop(ctx context.Context) error {
	g.logger.Info("Stopping gRPC service...")
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		g.logger.Warning("gRPC graceful shutdown timeout, forcing stop...")
		g.server.Stop()
	case <-done:
	}

	g.running.Store(false)
	g.logger.Info("gRPC service stopped")
	return nil
}

// -----------------------------------------------------------------------------

func (g *GRPCService) IsRunning() bool {
	return g.running.Load()
}
