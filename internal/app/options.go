package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/logger"

	"go.uber.org/zap"
)

// RunMode 进程启动模式
type RunMode string

const (
	ModeAll    RunMode = "all"
	ModeAPI    RunMode = "api"
	ModeWorker RunMode = "worker"
)

// ParseRunMode 解析 -mode 参数，空串视为 all
func ParseRunMode(raw string) (RunMode, error) {
	switch mode := RunMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown run mode %q", raw)
	}
}

func (m RunMode) servesAPI() bool {
	return m == ModeAll || m == ModeAPI
}

// Options 进程启动参数
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            RunMode
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		if opts.Config != nil {
			opts.ShutdownTimeout = opts.Config.Server.ShutdownTimeout()
		} else {
			opts.ShutdownTimeout = 10 * time.Second
		}
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
