package server

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/FleetLink/FleetLink/internal/common/config"
	"github.com/FleetLink/FleetLink/internal/common/discovery"
	"github.com/FleetLink/FleetLink/internal/common/logger"
)

// RunGRPCServer 启动 gRPC 服务（当前仅承载健康检查与反射），
// 注册到 Consul，收到退出信号后优雅停止。
// register 回调用于挂载业务服务，可为 nil。
func RunGRPCServer(cfg *config.Config, register func(s *grpc.Server)) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen %s: %w", addr, err)
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(UnaryChain(
		RecoveryInterceptor(),
		TracingInterceptor(),
		AccessLogInterceptor(),
	)))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(cfg.Server.Name, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	reflection.Register(s)

	if register != nil {
		register(s)
	}

	// Consul 注册失败不阻断启动（本地开发可能没有 Consul）
	var registry *discovery.Registry
	serviceID := fmt.Sprintf("%s-grpc-%d", cfg.Server.Name, cfg.Server.GRPCPort)
	registry, err = discovery.NewRegistry(cfg.Consul.Host, cfg.Consul.Port)
	if err == nil {
		if regErr := registry.Register(discovery.Registration{
			ServiceName: cfg.Server.Name,
			ServiceID:   serviceID,
			Host:        cfg.Server.Host,
			Port:        cfg.Server.GRPCPort,
			Tags:        []string{"grpc"},
			CheckType:   "grpc",
		}); regErr != nil {
			logger.Get().Warnf("consul register failed: %v", regErr)
		}
	} else {
		logger.Get().Warnf("consul client init failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Get().Infof("grpc server listening on %s", addr)
		errCh <- s.Serve(lis)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Get().Infof("received signal %s, stopping grpc server", sig)
		if registry != nil {
			if derr := registry.Deregister(serviceID); derr != nil {
				logger.Get().Warnf("consul deregister failed: %v", derr)
			}
		}
		healthServer.SetServingStatus(cfg.Server.Name, healthpb.HealthCheckResponse_NOT_SERVING)
		s.GracefulStop()
		return nil
	}
}
