package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/FleetLink/FleetLink/internal/common/config"
	"github.com/FleetLink/FleetLink/internal/common/middleware"
)

// NewRouter 组装巡检会话 API 路由。
// photoDir 非空时挂载本地照片目录（local 存储驱动的开发环境）。
func NewRouter(cfg *config.Config, h *Handlers, photoDir string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/vehicles", h.ListVehicles).Methods(http.MethodGet)

	api.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/vehicle", h.SelectVehicle).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/advance", h.AdvanceToTypeSelection).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/type", h.SelectType).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/start", h.StartInspection).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/next", h.NextSection).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/previous", h.PreviousSection).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/notes", h.SetNotes).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/sections/{section}/items/{item}/status", h.SetItemStatus).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/sections/{section}/items/{item}/notes", h.SetItemNotes).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/sections/{section}/items/{item}/photos", h.CapturePhoto).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/sections/{section}/items/{item}/photos/{idx}", h.DeletePhoto).Methods(http.MethodDelete)

	// 提交单独走滑动窗口限流（写入重、幂等性差）
	submitLimiter := middleware.NewSlidingWindow(10, time.Minute)
	api.Handle("/sessions/{id}/submit", submitRateLimit(submitLimiter, http.HandlerFunc(h.Submit))).Methods(http.MethodPost)

	if photoDir != "" {
		r.PathPrefix("/photos/").Handler(http.StripPrefix("/photos/", http.FileServer(http.Dir(photoDir))))
	}

	var handler http.Handler = r
	handler = RateLimitMiddleware(middleware.NewTokenBucket(200, 100))(handler)
	handler = AuthMiddleware(&cfg.Auth)(handler)
	handler = AccessLogMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	return handler
}

func submitRateLimit(limiter *middleware.SlidingWindow, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "submit rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
