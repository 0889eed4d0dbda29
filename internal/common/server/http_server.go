package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FleetLink/FleetLink/internal/common/config"
	"github.com/FleetLink/FleetLink/internal/common/discovery"
	"github.com/FleetLink/FleetLink/internal/common/logger"
)

// RunHTTPServer 启动 HTTP 服务，注册到 Consul（HTTP 健康检查），
// 收到退出信号后优雅停止。handler 为完整路由。
func RunHTTPServer(cfg *config.Config, handler http.Handler) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var registry *discovery.Registry
	serviceID := fmt.Sprintf("%s-http-%d", cfg.Server.Name, cfg.Server.HTTPPort)
	registry, err := discovery.NewRegistry(cfg.Consul.Host, cfg.Consul.Port)
	if err == nil {
		if regErr := registry.Register(discovery.Registration{
			ServiceName:   cfg.Server.Name,
			ServiceID:     serviceID,
			Host:          cfg.Server.Host,
			Port:          cfg.Server.HTTPPort,
			Tags:          []string{"http"},
			CheckType:     "http",
			HTTPCheckPath: "/healthz",
		}); regErr != nil {
			logger.Get().Warnf("consul register failed: %v", regErr)
		}
	} else {
		logger.Get().Warnf("consul client init failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Get().Infof("http server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case sig := <-quit:
		logger.Get().Infof("received signal %s, stopping http server", sig)
		if registry != nil {
			if derr := registry.Deregister(serviceID); derr != nil {
				logger.Get().Warnf("consul deregister failed: %v", derr)
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
