package main

import (
	"context"

	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/provider"
	"github.com/jobguard/internal/service"

	"github.com/shopspring/decimal"
)

// 写入本地演示数据：雇主/求职者账号、推广活动与地区规则、推广链接、推荐链接和职位额度
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	container, err := provider.NewContainer(cfg, models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init container: %v", err)
	}
	defer container.Close()
	ctx := context.Background()

	// 用户
	users := []models.User{
		{Email: "affiliate@jobguard.local", Role: constants.UserRoleCandidate, Country: "US", Status: constants.UserStatusActive},
		{Email: "employer@jobguard.local", Role: constants.UserRoleEmployer, Country: "DE", Status: constants.UserStatusActive},
		{Email: "candidate@jobguard.local", Role: constants.UserRoleCandidate, Country: "FR", Status: constants.UserStatusActive},
	}
	for i := range users {
		seeded, err := container.UserRepo.WithContext(ctx).EnsureByEmail(&users[i])
		if err != nil {
			stdLog.Fatalf("Failed to seed user %s: %v", users[i].Email, err)
		}
		users[i] = *seeded
	}
	affiliate := users[0]

	// 推广活动
	cpa := decimal.NewFromInt(50)
	offer, err := container.AttributionService.CreateOffer(ctx, service.CreateOfferInput{
		Name:             "Employer signup",
		TargetRole:       string(constants.UserRoleEmployer),
		PayoutModel:      string(constants.PayoutModelCPA),
		DefaultCPAAmount: &cpa,
		Currency:         "USD",
		IsActive:         true,
	})
	if err != nil {
		stdLog.Fatalf("Failed to seed offer: %v", err)
	}
	geoAmount := decimal.NewFromInt(80)
	if _, err := container.AttributionService.UpsertGeoRule(ctx, service.GeoRuleInput{
		OfferID:   offer.ID,
		Country:   "DE",
		CPAAmount: &geoAmount,
		Currency:  "EUR",
		IsActive:  true,
	}); err != nil {
		stdLog.Fatalf("Failed to seed geo rule: %v", err)
	}

	link, err := container.AttributionService.CreateLink(ctx, service.CreateLinkInput{
		AffiliateUserID: affiliate.ID,
		OfferID:         offer.ID,
		LandingPath:     "/employers/signup",
	})
	if err != nil {
		stdLog.Fatalf("Failed to seed affiliate link: %v", err)
	}

	jobPostID := uint(1001)
	referral, err := container.ReferralService.CreateLink(ctx, affiliate.ID, &jobPostID)
	if err != nil {
		stdLog.Fatalf("Failed to seed referral link: %v", err)
	}

	if _, err := container.QuotaService.SetCaps(ctx, jobPostID, 20, 200); err != nil {
		stdLog.Fatalf("Failed to seed quota caps: %v", err)
	}

	logger.Infow("seed_completed",
		"offer_id", offer.ID,
		"affiliate_link", link.Code,
		"referral_link", referral.Code,
		"job_post_id", jobPostID,
	)
}
