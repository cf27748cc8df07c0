package worker

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
	"github.com/jobguard/internal/provider"
	"github.com/jobguard/internal/queue"
	"github.com/jobguard/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB) {
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

	cfg := &config.Config{
		Quota:       config.QuotaConfig{DefaultAllowedPerDay: 5, DefaultCumulativeLimit: 50},
		Attribution: config.AttributionConfig{DefaultCurrency: "USD", UnresolvedReviewMins: 5},
	}
	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	return NewConsumer(container), db
}

func createWorkerRegistration(t *testing.T, c *Consumer, db *gorm.DB) *models.AffiliateRegistration {
	t.Helper()
	ctx := context.Background()
	affiliate := &models.User{Email: "aff@example.com", Role: constants.UserRoleCandidate, Status: constants.UserStatusActive}
	employer := &models.User{Email: "emp@example.com", Role: constants.UserRoleEmployer, Country: "DE", Status: constants.UserStatusActive}
	for _, user := range []*models.User{affiliate, employer} {
		if err := db.Create(user).Error; err != nil {
			t.Fatalf("create user failed: %v", err)
		}
	}
	amount := decimal.NewFromInt(50)
	offer, err := c.AttributionService.CreateOffer(ctx, service.CreateOfferInput{
		Name:             "Employer",
		TargetRole:       "employer",
		PayoutModel:      "cpa",
		DefaultCPAAmount: &amount,
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("create offer failed: %v", err)
	}
	link, err := c.AttributionService.CreateLink(ctx, service.CreateLinkInput{AffiliateUserID: affiliate.ID, OfferID: offer.ID})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	result, err := c.AttributionService.Attribute(ctx, service.AttributeInput{LinkCode: link.Code, UserID: employer.ID, Role: "employer"})
	if err != nil {
		t.Fatalf("attribute failed: %v", err)
	}
	return result.Registration
}

func TestHandleAffiliateQualifyQualifiesRegistration(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	reg := createWorkerRegistration(t, consumer, db)

	task, err := queue.NewAffiliateQualifyTask(queue.AffiliateQualifyPayload{RegistrationID: reg.ID})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleAffiliateQualify(context.Background(), task); err != nil {
		t.Fatalf("handle qualify failed: %v", err)
	}
	var stored models.AffiliateRegistration
	if err := db.First(&stored, reg.ID).Error; err != nil {
		t.Fatalf("reload registration failed: %v", err)
	}
	if stored.Status != constants.RegistrationStatusQualified {
		t.Fatalf("expected qualified registration, got %s", stored.Status)
	}

	if err := consumer.handleAffiliateQualify(context.Background(), task); err != nil {
		t.Fatalf("redelivered task must be a no-op, got %v", err)
	}
}

func TestHandleAffiliateQualifySkipsMissingRegistration(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	task, err := queue.NewAffiliateQualifyTask(queue.AffiliateQualifyPayload{RegistrationID: 404})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleAffiliateQualify(context.Background(), task); err != nil {
		t.Fatalf("missing registration must not retry, got %v", err)
	}
	bad := asynq.NewTask(queue.TaskAffiliateQualify, []byte("{"))
	if err := consumer.handleAffiliateQualify(context.Background(), bad); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestHandleRiskObservationStoresObservation(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	task, err := queue.NewRiskObservationTask(queue.RiskObservationPayload{
		UserID:          9,
		FingerprintHash: "fp-worker",
		IP:              "192.0.2.44",
		IsHosting:       true,
		ObservedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleRiskObservation(context.Background(), task); err != nil {
		t.Fatalf("handle observation failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.FingerprintObservation{}).Where("user_id = ? AND is_hosting = ?", 9, true).Count(&count).Error; err != nil {
		t.Fatalf("count observations failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored observation, got %d", count)
	}

	invalid := asynq.NewTask(queue.TaskRiskObservationStore, []byte(`{"user_id":9}`))
	if err := consumer.handleRiskObservation(context.Background(), invalid); err != nil {
		t.Fatalf("invalid payload must be dropped, got %v", err)
	}
}

func TestResolveReviewInterval(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	if got := resolveReviewInterval(consumer); got != 5*time.Minute {
		t.Fatalf("expected 5m, got %s", got)
	}
	if got := resolveReviewInterval(nil); got != defaultUnresolvedReviewInterval {
		t.Fatalf("expected default interval, got %s", got)
	}
}
