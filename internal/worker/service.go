package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultUnresolvedReviewInterval = 15 * time.Minute

// Service 异步队列服务
type Service struct {
	name           string
	server         *asynq.Server
	mux            *asynq.ServeMux
	consumer       *Consumer
	reviewInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:           "worker",
		server:         server,
		mux:            mux,
		consumer:       consumer,
		reviewInterval: resolveReviewInterval(consumer),
	}, nil
}

func resolveReviewInterval(consumer *Consumer) time.Duration {
	if consumer == nil || consumer.Container == nil || consumer.Config == nil {
		return defaultUnresolvedReviewInterval
	}
	minutes := consumer.Config.Attribution.UnresolvedReviewMins
	if minutes <= 0 {
		return defaultUnresolvedReviewInterval
	}
	return time.Duration(minutes) * time.Minute
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.Container != nil && s.consumer.AttributionService != nil {
		go s.runUnresolvedPayoutLoop(ctx)
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.server.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runUnresolvedPayoutLoop 定期统计待人工补录佣金的注册并刷新指标
func (s *Service) runUnresolvedPayoutLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.AttributionService == nil {
		return
	}
	runOnce := func() {
		total, err := s.consumer.AttributionService.CountUnresolvedPayouts(ctx)
		if err != nil {
			logger.Warnw("worker_unresolved_payout_count_failed", "error", err)
			return
		}
		if total > 0 {
			logger.Warnw("worker_unresolved_payouts_pending", "count", total)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.reviewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
