package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/repository"

	"gorm.io/gorm"
)

func setupReferralServiceTest(t *testing.T) *ReferralService {
	t.Helper()
	svc, _ := setupReferralServiceTestWithDB(t)
	return svc
}

func setupReferralServiceTestWithDB(t *testing.T) (*ReferralService, *gorm.DB) {
	t.Helper()
	db := setupServiceTestDB(t)
	return NewReferralService(repository.NewReferralRepository(db)), db
}

func TestReferralClickAndRegistrationCounters(t *testing.T) {
	svc := setupReferralServiceTest(t)
	ctx := context.Background()
	jobPostID := uint(12)
	link, err := svc.CreateLink(ctx, 1, &jobPostID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if len(link.Code) != linkCodeLength || link.JobPostID == nil || *link.JobPostID != 12 {
		t.Fatalf("unexpected link: %+v", link)
	}

	clickID, dup, err := svc.RecordClick(ctx, ReferralClickInput{Code: link.Code, ClientClickID: "r-1"})
	if err != nil || dup {
		t.Fatalf("record click failed: dup=%v err=%v", dup, err)
	}
	if _, dup, err = svc.RecordClick(ctx, ReferralClickInput{Code: link.Code, ClientClickID: "r-1"}); err != nil || !dup {
		t.Fatalf("duplicate click expected: dup=%v err=%v", dup, err)
	}
	if _, _, err := svc.RecordClick(ctx, ReferralClickInput{Code: link.Code}); err != nil {
		t.Fatalf("record generated click failed: %v", err)
	}

	reg, existing, err := svc.RecordRegistration(ctx, link.Code, 2, clickID)
	if err != nil || existing {
		t.Fatalf("record registration failed: existing=%v err=%v", existing, err)
	}
	if reg.ClickID == nil || *reg.ClickID != "r-1" {
		t.Fatalf("expected linked click, got %+v", reg)
	}
	again, existing, err := svc.RecordRegistration(ctx, link.Code, 2, "")
	if err != nil || !existing || again.ID != reg.ID {
		t.Fatalf("expected existing registration, got %+v existing=%v err=%v", again, existing, err)
	}

	stats, err := svc.GetLinkStats(ctx, link.Code)
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	if stats.ClickCount != 2 || stats.RegistrationCount != 1 || stats.ConversionRate != 50 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReferralRejectsSelfAndUnknownCodes(t *testing.T) {
	svc := setupReferralServiceTest(t)
	ctx := context.Background()
	zero := uint(0)
	link, err := svc.CreateLink(ctx, 4, &zero)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if link.JobPostID != nil {
		t.Fatalf("zero job post must mean site-wide link")
	}
	if _, _, err := svc.RecordRegistration(ctx, link.Code, 4, ""); !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}
	if _, _, err := svc.RecordClick(ctx, ReferralClickInput{Code: "UNKNOWN9"}); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
	if _, err := svc.GetLinkStats(ctx, ""); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound for empty code, got %v", err)
	}
}

func TestCalcConversionRate(t *testing.T) {
	cases := []struct {
		conversions, clicks int64
		want                float64
	}{
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 2, 100},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := calcConversionRate(tc.conversions, tc.clicks); got != tc.want {
			t.Fatalf("calcConversionRate(%d,%d)=%v want %v", tc.conversions, tc.clicks, got, tc.want)
		}
	}
}

func TestReferralRegistrationSurvivesLinkDeactivation(t *testing.T) {
	svc, db := setupReferralServiceTestWithDB(t)
	ctx := context.Background()
	link, err := svc.CreateLink(ctx, 1, nil)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	reg, _, err := svc.RecordRegistration(ctx, link.Code, 2, "")
	if err != nil {
		t.Fatalf("record registration failed: %v", err)
	}
	if err := db.Model(&models.ReferralLink{}).Where("id = ?", link.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate link failed: %v", err)
	}

	again, existing, err := svc.RecordRegistration(ctx, link.Code, 2, "")
	if err != nil || !existing || again == nil || again.ID != reg.ID {
		t.Fatalf("counted registration should be returned after deactivation, got %+v existing=%v err=%v", again, existing, err)
	}
	if _, _, err := svc.RecordRegistration(ctx, link.Code, 3, ""); !errors.Is(err, ErrLinkInactive) {
		t.Fatalf("new registration on inactive link want ErrLinkInactive, got %v", err)
	}
	if _, existing, err := svc.RecordRegistration(ctx, link.Code, 1, ""); !errors.Is(err, ErrLinkInactive) || existing {
		t.Fatalf("inactive link should be reported before self referral, got existing=%v err=%v", existing, err)
	}
}

// missFirstReferralLookupRepo 让前置查询漏掉已有记录，迫使写入走冲突分支
type missFirstReferralLookupRepo struct {
	repository.ReferralRepository
	misses *atomic.Int32
}

func (r *missFirstReferralLookupRepo) WithContext(ctx context.Context) repository.ReferralRepository {
	return &missFirstReferralLookupRepo{ReferralRepository: r.ReferralRepository.WithContext(ctx), misses: r.misses}
}

func (r *missFirstReferralLookupRepo) GetClickByClickID(clickID string) (*models.ReferralClick, error) {
	if r.misses.Add(-1) >= 0 {
		return nil, nil
	}
	return r.ReferralRepository.GetClickByClickID(clickID)
}

func (r *missFirstReferralLookupRepo) GetRegistration(linkID, userID uint) (*models.ReferralRegistration, error) {
	if r.misses.Add(-1) >= 0 {
		return nil, nil
	}
	return r.ReferralRepository.GetRegistration(linkID, userID)
}

func TestReferralConflictAfterMissedLookupCountsOnce(t *testing.T) {
	svc, db := setupReferralServiceTestWithDB(t)
	ctx := context.Background()
	link, err := svc.CreateLink(ctx, 1, nil)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if _, _, err := svc.RecordClick(ctx, ReferralClickInput{Code: link.Code, ClientClickID: "r-race"}); err != nil {
		t.Fatalf("record click failed: %v", err)
	}
	reg, _, err := svc.RecordRegistration(ctx, link.Code, 2, "")
	if err != nil {
		t.Fatalf("record registration failed: %v", err)
	}

	misses := &atomic.Int32{}
	racing := NewReferralService(&missFirstReferralLookupRepo{ReferralRepository: repository.NewReferralRepository(db), misses: misses})
	misses.Store(1)
	id, dup, err := racing.RecordClick(ctx, ReferralClickInput{Code: link.Code, ClientClickID: "r-race"})
	if err != nil || id != "r-race" || !dup {
		t.Fatalf("conflicting click should be duplicate, got id=%s dup=%v err=%v", id, dup, err)
	}
	misses.Store(1)
	again, existing, err := racing.RecordRegistration(ctx, link.Code, 2, "")
	if err != nil || !existing || again == nil || again.ID != reg.ID {
		t.Fatalf("conflicting registration should return existing row, got %+v existing=%v err=%v", again, existing, err)
	}

	stats, err := svc.GetLinkStats(ctx, link.Code)
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	if stats.ClickCount != 1 || stats.RegistrationCount != 1 {
		t.Fatalf("conflicting inserts must not count twice, got %+v", stats)
	}
}
