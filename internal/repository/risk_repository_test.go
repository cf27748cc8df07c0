package repository

import (
	"testing"
	"time"

	"github.com/jobguard/internal/models"
)

func TestRiskRepositoryUpsertIncrementsSeenCount(t *testing.T) {
	repo := NewRiskRepository(setupRepositoryTestDB(t))
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	created, err := repo.UpsertObservation(&models.FingerprintObservation{
		UserID:          9,
		FingerprintHash: "fp-a",
		IP:              "203.0.113.1",
		LastSeenAt:      first,
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if !created {
		t.Fatalf("first upsert should create row")
	}

	for i := 1; i <= 2; i++ {
		created, err = repo.UpsertObservation(&models.FingerprintObservation{
			UserID:          9,
			FingerprintHash: "fp-a",
			IP:              "203.0.113.1",
			IsHosting:       i == 1,
			LastSeenAt:      first.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("repeat upsert failed: %v", err)
		}
		if created {
			t.Fatalf("repeat upsert should not create row")
		}
	}

	rows, err := repo.ListObservationsByUser(9)
	if err != nil {
		t.Fatalf("list observations failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("observation rows want 1 got %d", len(rows))
	}
	row := rows[0]
	if row.SeenCount != 3 {
		t.Fatalf("seen count want 3 got %d", row.SeenCount)
	}
	if !row.IsHosting {
		t.Fatalf("hosting flag should stay true once observed")
	}
	if !row.FirstSeenAt.Equal(first) {
		t.Fatalf("first seen should not move, got %v", row.FirstSeenAt)
	}
	if !row.LastSeenAt.Equal(first.Add(2 * time.Hour)) {
		t.Fatalf("last seen want %v got %v", first.Add(2*time.Hour), row.LastSeenAt)
	}
}

func TestRiskRepositoryListObservationsUnknownUser(t *testing.T) {
	repo := NewRiskRepository(setupRepositoryTestDB(t))
	rows, err := repo.ListObservationsByUser(404)
	if err != nil {
		t.Fatalf("list observations failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("unknown user should have no observations, got %d", len(rows))
	}
}
