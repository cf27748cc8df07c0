package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/jobguard/internal/config"
)

// APIServer 对外 HTTP 接口服务
type APIServer struct {
	server *http.Server
}

// NewAPIServer 按 server 配置创建带超时的 HTTP 服务
func NewAPIServer(cfg config.ServerConfig, handler http.Handler) *APIServer {
	return &APIServer{server: &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       cfg.IdleTimeout(),
	}}
}

// Name 服务名
func (s *APIServer) Name() string { return "api" }

// Start 阻塞监听，Shutdown 后返回 nil
func (s *APIServer) Start(context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("api server not initialized")
	}
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop 等待在途请求结束
func (s *APIServer) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
