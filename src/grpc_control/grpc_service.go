package grpc_control

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServicePrefix prefixes the per-kind health service names
const ServicePrefix = "tradier.stream."

// -----------------------------------------------------------------------------
// GRPCService exposes daemon and session health over the standard gRPC health protocol
// -----------------------------------------------------------------------------

type GRPCService struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	config   *models.MConfig
	logger   *logger.Logger
	running  atomic.Bool
}

// -----------------------------------------------------------------------------

// NewGRPCService listens on grpc_host:grpc_port
func NewGRPCService(config *models.MConfig, logger *logger.Logger) (*GRPCService, error) {
	address := fmt.Sprintf("%s:%d", config.GRPC_Host, config.GRPC_Port)

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return NewGRPCServiceWithListener(config, logger, listener), nil
}

// -----------------------------------------------------------------------------

// NewGRPCServiceWithListener serves on an existing listener (tests pass a bufconn)
func NewGRPCServiceWithListener(config *models.MConfig, logger *logger.Logger, listener net.Listener) *GRPCService {
	serverOptions := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(1 * 1024 * 1024),
		grpc.MaxSendMsgSize(1 * 1024 * 1024),
	}
	server := grpc.NewServer(serverOptions...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	// Nothing is serving until the daemon says so
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	for _, kind := range []models.MSessionKind{models.SessionKindMarket, models.SessionKindAccount} {
		healthServer.SetServingStatus(ServiceName(kind), grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	return &GRPCService{
		server:   server,
		health:   healthServer,
		listener: listener,
		config:   config,
		logger:   logger,
	}
}

// -----------------------------------------------------------------------------

// ServiceName returns the health service name of a session kind
func ServiceName(kind models.MSessionKind) string {
	return ServicePrefix + string(kind)
}

// -----------------------------------------------------------------------------

// Start serves in the background and returns immediately
func (g *GRPCService) Start() error {
	g.logger.Info("grpc-control : starting gRPC service on %s", g.listener.Addr().String())

	g.running.Store(true)
	go func() {
		if err := g.server.Serve(g.listener); err != nil && err != grpc.ErrServerStopped {
			g.logger.Error("grpc-control : gRPC server failed: %v", err)
		}
		g.running.Store(false)
	}()
	return nil
}

// -----------------------------------------------------------------------------

// SetDaemonServing flips the overall ("") health status
func (g *GRPCService) SetDaemonServing(serving bool) {
	g.health.SetServingStatus("", servingStatus(serving))
}

// -----------------------------------------------------------------------------

// OnSessionState implements interfaces.ISessionStateListener
func (g *GRPCService) OnSessionState(kind models.MSessionKind, active bool) {
	g.logger.Debug("grpc-control : %s serving=%t", ServiceName(kind), active)
	g.health.SetServingStatus(ServiceName(kind), servingStatus(active))
}

// -----------------------------------------------------------------------------

// Stop gracefully stops the gRPC server, forcing it when ctx ends first
func (g *GRPCService) Stop(ctx context.Context) error {
	g.logger.Info("grpc-control : stopping gRPC service...")
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		g.logger.Warning("grpc-control : graceful shutdown timeout, forcing stop...")
		g.server.Stop()
	case <-done:
	}

	g.running.Store(false)
	g.logger.Info("grpc-control : gRPC service stopped")
	return nil
}

// -----------------------------------------------------------------------------

// IsRunning returns whether the gRPC server is running
func (g *GRPCService) IsRunning() bool {
	return g.running.Load()
}

// -----------------------------------------------------------------------------

func servingStatus(serving bool) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if serving {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}
