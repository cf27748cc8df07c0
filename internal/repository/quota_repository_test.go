package repository

import "testing"

func TestQuotaRepositoryEnsureIsIdempotent(t *testing.T) {
	repo := NewQuotaRepository(setupRepositoryTestDB(t))

	first, err := repo.EnsureJobPostQuota(7, 2, 3)
	if err != nil {
		t.Fatalf("ensure job post quota failed: %v", err)
	}
	second, err := repo.EnsureJobPostQuota(7, 50, 50)
	if err != nil {
		t.Fatalf("ensure job post quota again failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ensure should return the same row, got %d and %d", first.ID, second.ID)
	}
	if second.AllowedPerDay != 2 || second.CumulativeLimit != 3 {
		t.Fatalf("existing caps must not be overwritten, got %+v", second)
	}

	day, err := repo.EnsureDayQuota(7, "2026-01-01", second.AllowedPerDay)
	if err != nil {
		t.Fatalf("ensure day quota failed: %v", err)
	}
	again, err := repo.EnsureDayQuota(7, "2026-01-01", 99)
	if err != nil {
		t.Fatalf("ensure day quota again failed: %v", err)
	}
	if day.ID != again.ID || again.AllowedPerDay != 2 {
		t.Fatalf("day row should be created once, got %+v and %+v", day, again)
	}
}

func TestQuotaRepositoryConditionalIncrement(t *testing.T) {
	repo := NewQuotaRepository(setupRepositoryTestDB(t))
	if _, err := repo.EnsureJobPostQuota(1, 2, 10); err != nil {
		t.Fatalf("ensure job post quota failed: %v", err)
	}
	if _, err := repo.EnsureDayQuota(1, "2026-01-01", 2); err != nil {
		t.Fatalf("ensure day quota failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementDayUsage(1, "2026-01-01")
		if err != nil {
			t.Fatalf("increment day usage failed: %v", err)
		}
		if !ok {
			t.Fatalf("increment %d should succeed", i)
		}
	}
	ok, err := repo.IncrementDayUsage(1, "2026-01-01")
	if err != nil {
		t.Fatalf("increment day usage failed: %v", err)
	}
	if ok {
		t.Fatalf("increment beyond cap should not affect rows")
	}

	row, err := repo.GetDayQuota(1, "2026-01-01")
	if err != nil {
		t.Fatalf("get day quota failed: %v", err)
	}
	if row.UsedPerDay != 2 {
		t.Fatalf("used per day want 2 got %d", row.UsedPerDay)
	}
}

func TestQuotaRepositoryDecrementNeverNegative(t *testing.T) {
	repo := NewQuotaRepository(setupRepositoryTestDB(t))
	if _, err := repo.EnsureJobPostQuota(3, 1, 1); err != nil {
		t.Fatalf("ensure job post quota failed: %v", err)
	}
	if _, err := repo.EnsureDayQuota(3, "2026-01-01", 1); err != nil {
		t.Fatalf("ensure day quota failed: %v", err)
	}
	ok, err := repo.DecrementDayUsage(3, "2026-01-01")
	if err != nil {
		t.Fatalf("decrement day usage failed: %v", err)
	}
	if ok {
		t.Fatalf("decrement at zero should not affect rows")
	}
	ok, err = repo.DecrementCumulativeUsage(3)
	if err != nil {
		t.Fatalf("decrement cumulative usage failed: %v", err)
	}
	if ok {
		t.Fatalf("cumulative decrement at zero should not affect rows")
	}
}

func TestQuotaRepositoryUpdateCapsPropagatesForward(t *testing.T) {
	repo := NewQuotaRepository(setupRepositoryTestDB(t))
	if _, err := repo.EnsureJobPostQuota(5, 2, 10); err != nil {
		t.Fatalf("ensure job post quota failed: %v", err)
	}
	for _, day := range []string{"2026-01-01", "2026-01-02", "2026-01-03"} {
		if _, err := repo.EnsureDayQuota(5, day, 2); err != nil {
			t.Fatalf("ensure day quota %s failed: %v", day, err)
		}
	}
	if err := repo.UpdateCaps(5, 4, 20, "2026-01-02"); err != nil {
		t.Fatalf("update caps failed: %v", err)
	}
	rows, err := repo.ListDayQuotas(5, "", "")
	if err != nil {
		t.Fatalf("list day quotas failed: %v", err)
	}
	want := map[string]int64{"2026-01-01": 2, "2026-01-02": 4, "2026-01-03": 4}
	for _, row := range rows {
		if row.AllowedPerDay != want[row.DayBucket] {
			t.Fatalf("day %s allowed want %d got %d", row.DayBucket, want[row.DayBucket], row.AllowedPerDay)
		}
	}
	agg, err := repo.GetJobPostQuota(5)
	if err != nil {
		t.Fatalf("get job post quota failed: %v", err)
	}
	if agg.AllowedPerDay != 4 || agg.CumulativeLimit != 20 {
		t.Fatalf("aggregate caps not updated: %+v", agg)
	}
}
