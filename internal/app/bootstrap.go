package app

import (
	"errors"
	"fmt"

	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/provider"
	"github.com/jobguard/internal/router"
	"github.com/jobguard/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode RunMode) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if models.DB == nil {
		return nil, errors.New("database is not initialized")
	}

	container, err := provider.NewContainer(cfg, models.DB)
	if err != nil {
		return nil, fmt.Errorf("init container: %w", err)
	}

	var services []Service

	// HTTP 接口
	if mode.servesAPI() {
		services = append(services, NewAPIServer(cfg.Server, router.SetupRouter(cfg, container)))
	}

	// 初始化 Worker 服务；all 模式下队列未启用时只跑 API
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			container.Close()
			return nil, err
		}
		services = append(services, workerService)
	} else if mode == ModeAll {
		logger.Infow("app_worker_skipped", "reason", "queue disabled")
	}

	if len(services) == 0 {
		container.Close()
		return nil, fmt.Errorf("no services initialized for mode %q", mode)
	}

	runner := NewRunner(services...)
	runner.cleanup = container.Close
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
