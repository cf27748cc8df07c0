package repository

import "testing"

func TestLikeOperatorByDialect(t *testing.T) {
	if got := likeOperatorByDialect("sqlite"); got != "LIKE" {
		t.Fatalf("sqlite like operator want LIKE got %s", got)
	}
	if got := likeOperatorByDialect("postgres"); got != "ILIKE" {
		t.Fatalf("postgres like operator want ILIKE got %s", got)
	}
}

func TestDBDialectNameDefaultsToSQLite(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db dialect want sqlite got %s", got)
	}
}

func TestIsContention(t *testing.T) {
	cases := map[string]bool{
		"database is locked (5) (SQLITE_BUSY)":                      true,
		"ERROR: deadlock detected (SQLSTATE 40P01)":                 true,
		"ERROR: could not serialize access due to concurrent update": true,
		"UNIQUE constraint failed: affiliate_clicks.click_id":       false,
	}
	for msg, want := range cases {
		if got := IsContention(errString(msg)); got != want {
			t.Fatalf("IsContention(%q) want %v got %v", msg, want, got)
		}
	}
	if IsContention(nil) {
		t.Fatalf("nil error should not be contention")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(errString("UNIQUE constraint failed: affiliate_links.code")) {
		t.Fatalf("sqlite unique error should be detected")
	}
	if !IsUniqueViolation(errString("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")) {
		t.Fatalf("postgres unique error should be detected")
	}
	if IsUniqueViolation(errString("connection refused")) {
		t.Fatalf("connection error should not be unique violation")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
