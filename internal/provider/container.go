package provider

import (
	"fmt"

	"github.com/jobguard/internal/authz"
	"github.com/jobguard/internal/cache"
	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/metrics"
	"github.com/jobguard/internal/queue"
	"github.com/jobguard/internal/repository"
	"github.com/jobguard/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config          *config.Config
	QueueClient     *queue.Client
	Metrics         metrics.Recorder
	MetricsRegistry *prometheus.Registry
	Authz           *authz.Service

	// Repositories
	UserRepo      repository.UserRepository
	QuotaRepo     repository.QuotaRepository
	RiskRepo      repository.RiskRepository
	AffiliateRepo repository.AffiliateRepository
	ReferralRepo  repository.ReferralRepository
	DashboardRepo repository.DashboardRepository

	// Services
	RiskService        *service.RiskService
	QuotaService       *service.QuotaService
	AttributionService *service.AttributionService
	ReferralService    *service.ReferralService
	DashboardService   *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("config and db are required")
	}
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Container{
		Config:          cfg,
		QueueClient:     queueClient,
		Metrics:         metrics.New(cfg.Metrics, registry),
		MetricsRegistry: registry,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	if cfg.Authz.Enabled {
		if err := c.initAuthz(db); err != nil {
			return nil, err
		}
	}

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.QuotaRepo = repository.NewQuotaRepository(db)
	c.RiskRepo = repository.NewRiskRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initAuthz(db *gorm.DB) error {
	svc, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	if c.Config.Authz.BootstrapBuiltin {
		if err := svc.BootstrapBuiltinRoles(); err != nil {
			logger.Errorw("provider_bootstrap_roles_failed", "error", err)
			return err
		}
	}
	c.Authz = svc
	return nil
}

func (c *Container) initServices() error {
	classifier, err := service.NewCIDRClassifier(c.Config.Risk.ProxyCIDRs, c.Config.Risk.HostingCIDRs)
	if err != nil {
		logger.Errorw("provider_init_ip_classifier_failed", "error", err)
		return err
	}
	scoreCache := cache.NewRiskScoreCache(c.Config.Risk.ScoreCacheTTL(), c.Config.Risk.ScoreCacheLocal)
	c.RiskService = service.NewRiskService(c.RiskRepo, scoreCache, classifier, c.QueueClient, c.Metrics, c.Config.Risk)

	quotaService, err := service.NewQuotaService(c.QuotaRepo, c.RiskService, c.Metrics, c.Config.Quota)
	if err != nil {
		logger.Errorw("provider_init_quota_service_failed", "error", err)
		return err
	}
	c.QuotaService = quotaService
	c.AttributionService = service.NewAttributionService(c.AffiliateRepo, c.UserRepo, c.RiskService, c.QueueClient, c.Metrics, c.Config.Attribution)
	c.ReferralService = service.NewReferralService(c.ReferralRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
	return nil
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
