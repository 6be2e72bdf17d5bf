package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/analogyarena/logger"
)

// Checker 被探测的依赖，例如数据库
type Checker interface {
	Ping(ctx context.Context) error
}

// HealthServer serves the standard gRPC health protocol for orchestrators.
// The overall status follows the checker, probed every interval.
type HealthServer struct {
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
	checker  Checker
	stop     chan struct{}
}

func NewHealthServer(addr string, checker Checker) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	hs := health.NewServer()
	gs := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	return &HealthServer{grpc: gs, health: hs, listener: listener, checker: checker, stop: make(chan struct{})}, nil
}

func (h *HealthServer) Addr() string { return h.listener.Addr().String() }

// Probe 检查一次依赖并更新状态
func (h *HealthServer) Probe(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if h.checker != nil {
		if err := h.checker.Ping(ctx); err != nil {
			logger.Log.Warnw("health probe failed", "error", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", status)
	return status
}

// Start probes once, then serves until Stop.
func (h *HealthServer) Start(interval time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	h.Probe(ctx)
	cancel()

	if interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-h.stop:
					return
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					h.Probe(ctx)
					cancel()
				}
			}
		}()
	}

	logger.Log.Infof("gRPC health server listening on %s", h.Addr())
	if err := h.grpc.Serve(h.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Log.Errorf("gRPC health server stopped: %v", err)
	}
}

func (h *HealthServer) Stop() {
	close(h.stop)
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
