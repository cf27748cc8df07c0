package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jobguard/internal/cache"
	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// setupServiceTestDB 初始化 sqlite 内存库（单连接，串行化并发写）
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil, "")
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrateDB(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

type stubRiskChecker struct {
	high map[uint]bool
	err  error
}

func (s *stubRiskChecker) IsHighRisk(_ context.Context, userID uint) (bool, int, error) {
	if s.err != nil {
		return false, 0, s.err
	}
	if s.high[userID] {
		return true, 90, nil
	}
	return false, 0, nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func createServiceTestUser(t *testing.T, db *gorm.DB, email string, role constants.UserRole, country string) *models.User {
	t.Helper()
	user := &models.User{
		Email:   email,
		Role:    role,
		Country: country,
		Status:  constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

type attributionFixture struct {
	db        *gorm.DB
	svc       *AttributionService
	risk      *stubRiskChecker
	affiliate *models.User
	offer     *models.AffiliateOffer
	link      *models.AffiliateLink
}

// setupAttributionFixture 创建面向雇主、默认 CPA 50 USD 的活动与推广链接
func setupAttributionFixture(t *testing.T) *attributionFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	risk := &stubRiskChecker{high: map[uint]bool{}}
	svc := NewAttributionService(
		repository.NewAffiliateRepository(db),
		repository.NewUserRepository(db),
		risk,
		nil,
		nil,
		config.AttributionConfig{DefaultCurrency: "USD"},
	)
	affiliate := createServiceTestUser(t, db, "affiliate@example.com", constants.UserRoleCandidate, "US")
	amount := decimal.NewFromInt(50)
	offer, err := svc.CreateOffer(context.Background(), CreateOfferInput{
		Name:             "Employer signup",
		TargetRole:       "employer",
		PayoutModel:      "cpa",
		DefaultCPAAmount: &amount,
		Currency:         "usd",
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("create offer failed: %v", err)
	}
	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		AffiliateUserID: affiliate.ID,
		OfferID:         offer.ID,
		LandingPath:     "/employers",
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	return &attributionFixture{db: db, svc: svc, risk: risk, affiliate: affiliate, offer: offer, link: link}
}

func reloadAffiliateLink(t *testing.T, db *gorm.DB, id uint) models.AffiliateLink {
	t.Helper()
	var link models.AffiliateLink
	if err := db.First(&link, id).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	return link
}
