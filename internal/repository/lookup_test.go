package repository

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// errorCountingLogger 统计 gorm 上报的失败语句
type errorCountingLogger struct {
	gormlogger.Interface
	failures atomic.Int32
}

func (l *errorCountingLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *errorCountingLogger) Trace(_ context.Context, _ time.Time, _ func() (string, int64), err error) {
	if err != nil {
		l.failures.Add(1)
	}
}

func TestLookupMissesDoNotReportErrors(t *testing.T) {
	db := setupRepositoryTestDB(t)
	recorder := &errorCountingLogger{Interface: gormlogger.Discard}
	quiet := db.Session(&gorm.Session{Logger: recorder})

	affiliate := NewAffiliateRepository(quiet)
	if click, err := affiliate.GetClickByClickID("missing"); err != nil || click != nil {
		t.Fatalf("missing click want nil, got %+v err=%v", click, err)
	}
	if reg, err := affiliate.GetRegistration(1, 2); err != nil || reg != nil {
		t.Fatalf("missing registration want nil, got %+v err=%v", reg, err)
	}
	referral := NewReferralRepository(quiet)
	if reg, err := referral.GetRegistration(1, 2); err != nil || reg != nil {
		t.Fatalf("missing referral registration want nil, got %+v err=%v", reg, err)
	}
	if click, err := referral.GetClickByClickID("missing"); err != nil || click != nil {
		t.Fatalf("missing referral click want nil, got %+v err=%v", click, err)
	}
	quota := NewQuotaRepository(quiet)
	if row, err := quota.GetDayQuota(1, "2026-03-10"); err != nil || row != nil {
		t.Fatalf("missing day quota want nil, got %+v err=%v", row, err)
	}
	if user, err := NewUserRepository(quiet).GetByID(99); err != nil || user != nil {
		t.Fatalf("missing user want nil, got %+v err=%v", user, err)
	}

	if n := recorder.failures.Load(); n != 0 {
		t.Fatalf("expected lookups without reported errors, got %d", n)
	}
}
