package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jobguard/internal/cache"
	"github.com/jobguard/internal/config"
	adminhandlers "github.com/jobguard/internal/http/handlers/admin"
	publichandlers "github.com/jobguard/internal/http/handlers/public"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		log.Sugar().Warnw("router_trusted_proxies_invalid", "error", err)
	}

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "jg"
	}
	redisClient := cache.Client()
	clickRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:click", redisPrefix),
		WindowSeconds: cfg.Security.ClickRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClickRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.ClickRateLimit.BlockSeconds,
		MessageKey:    "error.rate_limit_click",
	}
	clickLimiter := RateLimitMiddleware(redisClient, clickRule, KeyByIPAndJSONField("code"))

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware(c.Metrics))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/affiliate/links/:code", publicHandler.GetAffiliateLink)
			public.POST("/affiliate/click", clickLimiter, publicHandler.TrackAffiliateClick)
			public.POST("/referral/click", clickLimiter, publicHandler.TrackReferralClick)
			public.GET("/referral/links/:code/stats", publicHandler.GetReferralLinkStats)
			public.GET("/jobs/:job_id/quota", publicHandler.GetJobQuota)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("/user")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT, c.UserRepo))
		{
			user.POST("/affiliate/attribute", publicHandler.AttributeRegistration)
			user.POST("/affiliate/links", publicHandler.CreateAffiliateLink)
			user.GET("/affiliate/links", publicHandler.ListMyAffiliateLinks)
			user.GET("/affiliate/registrations", publicHandler.ListMyAffiliateRegistrations)
			user.POST("/referral/links", publicHandler.CreateReferralLink)
			user.POST("/referral/register", publicHandler.RecordReferralRegistration)
			user.POST("/jobs/:job_id/admit", publicHandler.AdmitApplication)
			user.POST("/jobs/:job_id/release", publicHandler.ReleaseApplication)
			user.POST("/risk/fingerprint", publicHandler.ReportFingerprint)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(cfg.JWT), AdminRBACMiddleware(c.Authz))
		{
			// 看板
			admin.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
			admin.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
			admin.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

			// 推广活动与链接
			admin.GET("/affiliate/offers", adminHandler.ListAffiliateOffers)
			admin.POST("/affiliate/offers", adminHandler.CreateAffiliateOffer)
			admin.PUT("/affiliate/offers/:id/geo-rules", adminHandler.UpsertAffiliateGeoRule)
			admin.GET("/affiliate/links", adminHandler.ListAffiliateLinks)
			admin.POST("/affiliate/links", adminHandler.CreateAffiliateLink)
			admin.PATCH("/affiliate/links/:id/active", adminHandler.SetAffiliateLinkActive)

			// 推广注册与结算
			admin.GET("/affiliate/registrations", adminHandler.ListAffiliateRegistrations)
			admin.GET("/affiliate/registrations/:id/events", adminHandler.ListAffiliateRegistrationEvents)
			admin.POST("/affiliate/registrations/:id/qualify", adminHandler.QualifyAffiliateRegistration)
			admin.POST("/affiliate/registrations/:id/reject", adminHandler.RejectAffiliateRegistration)
			admin.POST("/affiliate/registrations/:id/payout", adminHandler.ResolveAffiliatePayout)
			admin.PATCH("/affiliate/registrations/:id/payout-status", adminHandler.UpdateAffiliatePayoutStatus)
			admin.GET("/affiliate/payouts/rollup", adminHandler.GetAffiliatePayoutRollup)

			// 职位推荐
			admin.GET("/referral/links", adminHandler.ListReferralLinks)

			// 投递额度
			admin.PUT("/quota/jobs/:job_id/caps", adminHandler.SetJobQuotaCaps)
			admin.GET("/quota/jobs/:job_id", adminHandler.GetJobQuotaUsage)
			admin.GET("/quota/jobs/:job_id/daily", adminHandler.ListJobQuotaDaily)

			// 风控
			admin.GET("/risk/users/:user_id", adminHandler.GetUserRiskScore)
			admin.GET("/risk/observations", adminHandler.ListRiskObservations)

			// 角色授权
			if c.Authz != nil {
				admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
				admin.GET("/authz/operators/:id", adminHandler.GetOperatorAuthz)
				admin.PUT("/authz/operators/:id/roles", adminHandler.AssignOperatorRoles)
			}

			admin.GET("/routes", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminRouteCatalog(r))
			})
		}
	}

	// 指标
	if cfg.Metrics.Enabled && c.MetricsRegistry != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(c.MetricsRegistry, promhttp.HandlerOpts{})))
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminRouteCatalogItem struct {
	Module string `json:"module"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

func buildAdminRouteCatalog(engine *gin.Engine) []adminRouteCatalogItem {
	if engine == nil {
		return []adminRouteCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminRouteCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		key := method + ":" + item.Path
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, adminRouteCatalogItem{
			Module: deriveAdminRouteModule(item.Path),
			Method: method,
			Path:   item.Path,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Path == items[j].Path {
				return items[i].Method < items[j].Method
			}
			return items[i].Path < items[j].Path
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminRouteModule(path string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(path), "/api/v1/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
