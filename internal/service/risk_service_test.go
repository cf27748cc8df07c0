package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jobguard/internal/cache"
	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/repository"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{HostingPoints: 60, SybilWindowDays: 7}
}

func setupRiskServiceTest(t *testing.T, classifier IPClassifier) *RiskService {
	t.Helper()
	db := setupServiceTestDB(t)
	svc := NewRiskService(
		repository.NewRiskRepository(db),
		cache.NewRiskScoreCache(time.Minute, true),
		classifier,
		nil,
		nil,
		config.RiskConfig{HighRiskThreshold: 40},
	)
	svc.nowFn = fixedClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	return svc
}

func TestRiskServiceRecordUpsertsObservation(t *testing.T) {
	svc := setupRiskServiceTest(t, nil)
	ctx := context.Background()
	input := RiskObservationInput{UserID: 5, FingerprintHash: "fp-1", IP: "198.51.100.7"}
	for i := 0; i < 3; i++ {
		if err := svc.Record(ctx, input); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	input.IsHosting = true
	if err := svc.Record(ctx, input); err != nil {
		t.Fatalf("record hosting failed: %v", err)
	}
	input.IsHosting = false
	if err := svc.Record(ctx, input); err != nil {
		t.Fatalf("record plain failed: %v", err)
	}

	rows, total, err := svc.ListObservations(ctx, repository.RiskObservationListFilter{UserID: 5})
	if err != nil {
		t.Fatalf("list observations failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected single observation row, got %d", total)
	}
	if rows[0].SeenCount != 5 || !rows[0].IsHosting {
		t.Fatalf("expected seen_count 5 with sticky hosting flag, got %+v", rows[0])
	}
}

func TestRiskServiceRecordValidatesInput(t *testing.T) {
	svc := setupRiskServiceTest(t, nil)
	for _, input := range []RiskObservationInput{
		{FingerprintHash: "fp", IP: "1.1.1.1"},
		{UserID: 1, IP: "1.1.1.1"},
		{UserID: 1, FingerprintHash: "fp"},
	} {
		if err := svc.Record(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", input, err)
		}
	}
}

func TestRiskServiceScoreInvalidatesCacheOnRecord(t *testing.T) {
	svc := setupRiskServiceTest(t, nil)
	ctx := context.Background()

	if score, err := svc.Score(ctx, 0); err != nil || score != 0 {
		t.Fatalf("unknown user must score 0, got %d err=%v", score, err)
	}
	if err := svc.Record(ctx, RiskObservationInput{UserID: 8, FingerprintHash: "fp", IP: "192.0.2.1"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	score, err := svc.Score(ctx, 8)
	if err != nil || score != 0 {
		t.Fatalf("expected cached score 0, got %d err=%v", score, err)
	}
	if err := svc.Record(ctx, RiskObservationInput{UserID: 8, FingerprintHash: "fp", IP: "192.0.2.1", IsHosting: true}); err != nil {
		t.Fatalf("record hosting failed: %v", err)
	}
	high, score, err := svc.IsHighRisk(ctx, 8)
	if err != nil {
		t.Fatalf("is high risk failed: %v", err)
	}
	if score != 40 || !high {
		t.Fatalf("expected fresh score 40 at threshold 40, got %d high=%v", score, high)
	}
}

// recordDuringListRepo 在第一次读取观测后插入一次写入
type recordDuringListRepo struct {
	repository.RiskRepository
	once   *sync.Once
	onList func()
}

func (r *recordDuringListRepo) WithContext(ctx context.Context) repository.RiskRepository {
	return &recordDuringListRepo{RiskRepository: r.RiskRepository.WithContext(ctx), once: r.once, onList: r.onList}
}

func (r *recordDuringListRepo) ListObservationsByUser(userID uint) ([]models.FingerprintObservation, error) {
	rows, err := r.RiskRepository.ListObservationsByUser(userID)
	r.once.Do(r.onList)
	return rows, err
}

func TestRiskServiceScoreIgnoresRecordDuringCompute(t *testing.T) {
	db := setupServiceTestDB(t)
	scores := cache.NewRiskScoreCache(time.Minute, true)
	cfg := config.RiskConfig{HighRiskThreshold: 60, ProxyPoints: 25, HostingPoints: 40}
	writer := NewRiskService(repository.NewRiskRepository(db), scores, nil, nil, nil, cfg)
	ctx := context.Background()

	repo := &recordDuringListRepo{RiskRepository: repository.NewRiskRepository(db), once: &sync.Once{}}
	repo.onList = func() {
		if err := writer.Record(ctx, RiskObservationInput{UserID: 6, FingerprintHash: "fp", IP: "203.0.113.8", IsProxy: true, IsHosting: true}); err != nil {
			t.Errorf("concurrent record failed: %v", err)
		}
	}
	reader := NewRiskService(repo, scores, nil, nil, nil, cfg)

	first, err := reader.Score(ctx, 6)
	if err != nil {
		t.Fatalf("first score failed: %v", err)
	}
	if first != 0 {
		t.Fatalf("first score computed before the record want 0, got %d", first)
	}
	high, score, err := reader.IsHighRisk(ctx, 6)
	if err != nil {
		t.Fatalf("is high risk failed: %v", err)
	}
	if score != 65 || !high {
		t.Fatalf("score after concurrent record want 65 high, got %d high=%v", score, high)
	}
}

func TestRiskServiceRecordRequestClassifiesIP(t *testing.T) {
	classifier, err := NewCIDRClassifier([]string{"203.0.113.0/24"}, []string{"198.51.100.0/24"})
	if err != nil {
		t.Fatalf("new classifier failed: %v", err)
	}
	svc := setupRiskServiceTest(t, classifier)
	ctx := context.Background()
	if err := svc.RecordRequest(ctx, 3, "fp", "203.0.113.5"); err != nil {
		t.Fatalf("record request failed: %v", err)
	}
	breakdown, err := svc.Explain(ctx, 3)
	if err != nil {
		t.Fatalf("explain failed: %v", err)
	}
	if breakdown.ProxyPoints == 0 || breakdown.HostingPoints != 0 {
		t.Fatalf("expected proxy classification only, got %+v", breakdown)
	}

	rows, _, err := svc.ListObservations(ctx, repository.RiskObservationListFilter{UserID: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 || rows[0].IP != "203.0.113.5" || !rows[0].IsProxy {
		t.Fatalf("unexpected stored observation: %+v", rows)
	}
}

func TestCIDRClassifier(t *testing.T) {
	classifier, err := NewCIDRClassifier([]string{"203.0.113.9"}, []string{"2001:db8::/32", " "})
	if err != nil {
		t.Fatalf("new classifier failed: %v", err)
	}
	cases := []struct {
		ip   string
		want IPClassification
	}{
		{"203.0.113.9", IPClassification{IsProxy: true}},
		{"203.0.113.10", IPClassification{}},
		{"2001:db8::1", IPClassification{IsHosting: true}},
		{"::ffff:203.0.113.9", IPClassification{IsProxy: true}},
		{"not-an-ip", IPClassification{}},
	}
	for _, tc := range cases {
		if got := classifier.Classify(tc.ip); got != tc.want {
			t.Fatalf("classify %s: expected %+v, got %+v", tc.ip, tc.want, got)
		}
	}
	if _, err := NewCIDRClassifier([]string{"300.1.1.0/24"}, nil); err == nil {
		t.Fatalf("expected invalid cidr error")
	}
}

func TestDayBucketer(t *testing.T) {
	utc, err := NewDayBucketer("", 1)
	if err != nil {
		t.Fatalf("new bucketer failed: %v", err)
	}
	at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	if got := utc.Bucket(at); got != "2026-03-10" {
		t.Fatalf("expected 2026-03-10, got %s", got)
	}

	tokyo, err := NewDayBucketer("Asia/Tokyo", 1)
	if err != nil {
		t.Fatalf("new tokyo bucketer failed: %v", err)
	}
	if got := tokyo.Bucket(at); got != "2026-03-11" {
		t.Fatalf("expected tokyo bucket 2026-03-11, got %s", got)
	}

	weekly, err := NewDayBucketer("UTC", 7)
	if err != nil {
		t.Fatalf("new weekly bucketer failed: %v", err)
	}
	start := weekly.Bucket(at)
	for i := 0; i < 7; i++ {
		day := weekly.Start(at).AddDate(0, 0, i)
		if got := weekly.Bucket(day); got != start {
			t.Fatalf("day %d expected bucket %s, got %s", i, start, got)
		}
	}
	if next := weekly.Bucket(weekly.Start(at).AddDate(0, 0, 7)); next == start {
		t.Fatalf("expected new bucket after 7 days")
	}

	if _, err := NewDayBucketer("Mars/Olympus", 1); err == nil {
		t.Fatalf("expected invalid timezone error")
	}
}
