package api

import (
	"fmt"
	"net"

	"HttpSpectra/internal/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service besides the server-wide "" entry.
const ServiceName = "httpspectra.Analyzer"

// HealthServer exposes the standard gRPC health service for the analyzer.
type HealthServer struct {
	addr       string
	grpcServer *grpc.Server
	health     *health.Server
}

// NewHealthServer creates a server that reports NOT_SERVING until SetServing(true).
func NewHealthServer(addr string) *HealthServer {
	h := &HealthServer{
		addr:       addr,
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.grpcServer, h.health)
	reflection.Register(h.grpcServer)
	h.SetServing(false)
	return h
}

// SetServing flips the status of both the server and the analyzer service.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving on lis.
func (h *HealthServer) Serve(lis net.Listener) error {
	return h.grpcServer.Serve(lis)
}

// Start listens on the configured address in the background.
func (h *HealthServer) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	go func() {
		logging.Infof("gRPC health server listening at %v", lis.Addr())
		if err := h.grpcServer.Serve(lis); err != nil {
			logging.Errorf("gRPC server stopped: %v", err)
		}
	}()
	return nil
}

// Stop marks every service NOT_SERVING and drains open RPCs.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpcServer.GracefulStop()
}
