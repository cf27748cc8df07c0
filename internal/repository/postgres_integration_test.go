//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jobguard/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := models.AllModels()
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := models.AutoMigrateDB(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresConcurrentDayIncrementRespectsCap(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewQuotaRepository(db)

	if _, err := repo.EnsureJobPostQuota(42, 5, 100); err != nil {
		t.Fatalf("ensure job post quota failed: %v", err)
	}

	const workers = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.EnsureDayQuota(42, "2026-05-01", 5); err != nil {
				t.Errorf("ensure day quota failed: %v", err)
				return
			}
			ok, err := repo.IncrementDayUsage(42, "2026-05-01")
			if err != nil {
				t.Errorf("increment failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 5 {
		t.Fatalf("admitted want 5 got %d", admitted)
	}
	row, err := repo.GetDayQuota(42, "2026-05-01")
	if err != nil {
		t.Fatalf("get day quota failed: %v", err)
	}
	if row.UsedPerDay != 5 {
		t.Fatalf("used per day want 5 got %d", row.UsedPerDay)
	}
}

func TestPostgresGeoRuleUpsertAndRollup(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewAffiliateRepository(db)
	offer, link := seedAffiliateLink(t, db, "PGROLL01")

	if err := repo.UpsertGeoRule(&models.AffiliateOfferGeoRule{OfferID: offer.ID, Country: "DE", IsActive: true}); err != nil {
		t.Fatalf("upsert geo rule failed: %v", err)
	}
	if err := repo.UpsertGeoRule(&models.AffiliateOfferGeoRule{OfferID: offer.ID, Country: "DE", IsActive: false}); err != nil {
		t.Fatalf("second upsert geo rule failed: %v", err)
	}
	rule, err := repo.GetActiveGeoRule(offer.ID, "DE")
	if err != nil {
		t.Fatalf("get geo rule failed: %v", err)
	}
	if rule != nil {
		t.Fatalf("deactivated geo rule should not be returned")
	}
	if _, err := repo.SumPayouts(PayoutRollupFilter{OfferID: link.OfferID}); err != nil {
		t.Fatalf("sum payouts failed: %v", err)
	}
}
