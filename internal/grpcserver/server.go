package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const (
	// ServiceName is the health service name probes ask about besides "".
	ServiceName = "hotelbook.v1.Booking"

	defaultProbeTimeout  = 2 * time.Second
	defaultWatchInterval = 5 * time.Second
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthServer answers grpc.health.v1 probes by pinging the database.
type HealthServer struct {
	healthv1.UnimplementedHealthServer
	database      Pinger
	logger        *zap.Logger
	probeTimeout  time.Duration
	watchInterval time.Duration
}

// Option tunes a HealthServer.
type Option func(*HealthServer)

func WithProbeTimeout(timeout time.Duration) Option {
	return func(server *HealthServer) {
		if timeout > 0 {
			server.probeTimeout = timeout
		}
	}
}

func WithWatchInterval(interval time.Duration) Option {
	return func(server *HealthServer) {
		if interval > 0 {
			server.watchInterval = interval
		}
	}
}

func NewHealthServer(database Pinger, logger *zap.Logger, options ...Option) *HealthServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &HealthServer{
		database:      database,
		logger:        logger,
		probeTimeout:  defaultProbeTimeout,
		watchInterval: defaultWatchInterval,
	}
	for _, option := range options {
		option(server)
	}
	return server
}

// Register attaches the health service to grpcServer.
func Register(grpcServer *grpc.Server, server *HealthServer) {
	healthv1.RegisterHealthServer(grpcServer, server)
}

func (server *HealthServer) Check(ctx context.Context, request *healthv1.HealthCheckRequest) (*healthv1.HealthCheckResponse, error) {
	if !knownService(request.GetService()) {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", request.GetService())
	}
	return &healthv1.HealthCheckResponse{Status: server.probe(ctx)}, nil
}

// Watch sends the current status immediately and then again whenever it changes.
func (server *HealthServer) Watch(request *healthv1.HealthCheckRequest, stream healthv1.Health_WatchServer) error {
	if !knownService(request.GetService()) {
		return stream.Send(&healthv1.HealthCheckResponse{Status: healthv1.HealthCheckResponse_SERVICE_UNKNOWN})
	}
	ctx := stream.Context()
	last := server.probe(ctx)
	if err := stream.Send(&healthv1.HealthCheckResponse{Status: last}); err != nil {
		return err
	}
	ticker := time.NewTicker(server.watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case <-ticker.C:
			current := server.probe(ctx)
			if current == last {
				continue
			}
			last = current
			if err := stream.Send(&healthv1.HealthCheckResponse{Status: current}); err != nil {
				return err
			}
		}
	}
}

func (server *HealthServer) probe(ctx context.Context) healthv1.HealthCheckResponse_ServingStatus {
	probeCtx, cancel := context.WithTimeout(ctx, server.probeTimeout)
	defer cancel()
	if err := server.database.PingContext(probeCtx); err != nil {
		server.logger.Warn("database ping failed", zap.Error(err))
		return healthv1.HealthCheckResponse_NOT_SERVING
	}
	return healthv1.HealthCheckResponse_SERVING
}

func knownService(name string) bool {
	return name == "" || name == ServiceName
}
