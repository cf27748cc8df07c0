package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"

	"github.com/jobguard/internal/app"
	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

func main() {
	printStartupBanner()

	// 本地开发可用 .env 覆盖配置，文件不存在时忽略
	envFile := os.Getenv("JOBGUARD_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "警告: 加载 %s 失败: %v\n", envFile, err)
	}

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	for _, item := range []struct {
		name   string
		secret string
	}{
		{name: "jwt.secret", secret: cfg.JWT.SecretKey},
		{name: "user_jwt.secret", secret: cfg.UserJWT.SecretKey},
	} {
		if !isWeakSecret(item.secret) {
			continue
		}
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("%s 过弱或仍为默认值，请在生产环境中配置强随机密钥", item.name)
		}
		stdLog.Printf("警告: %s 过弱或仍为默认值，建议在生产环境中更换", item.name)
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var rawMode string
	flag.StringVar(&rawMode, "mode", string(app.ModeAll), "启动模式: all (默认), api, worker")
	flag.Parse()
	mode, err := app.ParseRunMode(rawMode)
	if err != nil {
		stdLog.Fatalf("启动参数错误: %v", err)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiCyan + ansiBold + "jobguard" + ansiReset + ansiDim + "  application quota · affiliate attribution · risk signals" + ansiReset)
	fmt.Println(ansiGreen + "starting API and worker services" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
