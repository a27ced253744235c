package grpctransport

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// GRPCTransport serves the standard gRPC health protocol. The overall status
// and one status per remote dependency are reported; a dependency is NOT_SERVING
// while its calls are failing and the fallback policy is covering for it.
type GRPCTransport struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
}

// NewGRPCTransport creates a new GRPCTransport.
func NewGRPCTransport() *GRPCTransport {
	listener, err := net.Listen("tcp", ":"+viper.GetString("server.grpc.port"))
	if err != nil {
		panic(err)
	}

	return newGRPCTransport(listener)
}

func newGRPCTransport(listener net.Listener) *GRPCTransport {
	g := &GRPCTransport{
		server:   newGRPCServer(),
		listener: listener,
		health:   health.NewServer(),
	}
	g.RegisterServices()

	return g
}

// Run starts the gRPC server.
func (g *GRPCTransport) Run() error {
	slog.Info("Starting gRPC server", "address", g.listener.Addr().String())

	return g.server.Serve(g.listener)
}

// SetServing reports the health of a remote dependency under its own service
// name.
func (g *GRPCTransport) SetServing(dependency string, serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus(dependency, status)
}

// Shutdown gracefully shuts down the gRPC server.
func (g *GRPCTransport) Shutdown(ctx context.Context) error {
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.server.Stop()

		return ctx.Err()
	}
}

// RegisterServices registers the gRPC services.
func (g *GRPCTransport) RegisterServices() {
	healthpb.RegisterHealthServer(g.server, g.health)
	reflection.Register(g.server)
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// newGRPCServer creates a new gRPC server with default settings.
func newGRPCServer() *grpc.Server {
	keepaliveParams := keepalive.ServerParameters{
		MaxConnectionIdle: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_idle"),
		) * time.Minute,
		MaxConnectionAge: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_age"),
		) * time.Minute,
		MaxConnectionAgeGrace: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_age_grace"),
		) * time.Second,
		Time: time.Duration(
			viper.GetInt("server.grpc.keepalive.time"),
		) * time.Second,
		Timeout: time.Duration(
			viper.GetInt("server.grpc.keepalive.timeout"),
		) * time.Second,
	}

	keepalivePolicy := keepalive.EnforcementPolicy{
		MinTime: time.Duration(
			viper.GetInt("server.grpc.keepalive.min_time"),
		) * time.Second,
		PermitWithoutStream: viper.GetBool("server.grpc.keepalive.permit_without_stream"),
	}

	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepaliveParams),
		grpc.KeepaliveEnforcementPolicy(keepalivePolicy),
	}

	return grpc.NewServer(opts...)
}
