package repository

import (
	"context"
	"testing"

	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/models"
)

func TestUserRepositoryEnsureByEmailKeepsExistingProfile(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserRepository(db).WithContext(context.Background())

	first, err := repo.EnsureByEmail(&models.User{Email: " Emp@Example.com ", Role: constants.UserRoleEmployer, Country: "DE"})
	if err != nil {
		t.Fatalf("ensure user failed: %v", err)
	}
	if first.ID == 0 || first.Email != "emp@example.com" {
		t.Fatalf("unexpected user: %+v", first)
	}

	again, err := repo.EnsureByEmail(&models.User{Email: "emp@example.com", Role: constants.UserRoleCandidate, Country: "FR"})
	if err != nil {
		t.Fatalf("ensure existing user failed: %v", err)
	}
	if again.ID != first.ID || again.Country != "DE" || again.Role != constants.UserRoleEmployer {
		t.Fatalf("existing profile should be kept, got %+v", again)
	}

	got, err := repo.GetByID(first.ID)
	if err != nil || got == nil {
		t.Fatalf("get by id failed: %v", err)
	}
	missing, err := repo.GetByID(first.ID + 100)
	if err != nil || missing != nil {
		t.Fatalf("missing user should be nil, nil; got %+v %v", missing, err)
	}
	if _, err := repo.EnsureByEmail(&models.User{}); err == nil {
		t.Fatalf("empty email should fail")
	}
}
