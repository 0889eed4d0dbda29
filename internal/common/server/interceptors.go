package server

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/FleetLink/FleetLink/internal/common/logger"
)

// UnaryChain 把多个一元拦截器串成一个
func UnaryChain(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		chained := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			ic := interceptors[i]
			next := chained
			chained = func(c context.Context, r interface{}) (interface{}, error) {
				return ic(c, r, info, next)
			}
		}
		return chained(ctx, req)
	}
}

// RecoveryInterceptor panic 恢复，转为 Internal 错误
func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Get().Errorf("panic in %s: %v\n%s", info.FullMethod, r, debug.Stack())
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// AccessLogInterceptor 访问日志：方法、耗时、结果。
func AccessLogInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := map[string]interface{}{
			"method":  info.FullMethod,
			"elapsed": time.Since(start).String(),
		}
		if err != nil {
			fields["error"] = err.Error()
			logger.Get().WithFields(fields).Warn("grpc access")
		} else {
			logger.Get().WithFields(fields).Info("grpc access")
		}
		return resp, err
	}
}

// TracingInterceptor 为每个请求创建 span
func TracingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		tracer := opentracing.GlobalTracer()
		span := tracer.StartSpan(info.FullMethod)
		defer span.Finish()
		ext.SpanKindRPCServer.Set(span)

		ctx = opentracing.ContextWithSpan(ctx, span)
		resp, err := handler(ctx, req)
		if err != nil {
			ext.Error.Set(span, true)
			span.LogKV("error", err.Error())
		}
		return resp, err
	}
}
