package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestAllowOperatorWithGrantedRoute(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRoute("quota_ops", "/admin/quota/jobs/:job_id/caps", "put"); err != nil {
		t.Fatalf("grant route failed: %v", err)
	}
	if err := svc.AssignRoles(1, []string{"quota_ops"}); err != nil {
		t.Fatalf("assign roles failed: %v", err)
	}

	allow, err := svc.AllowOperator(1, "/api/v1/admin/quota/jobs/42/caps", "PUT")
	if err != nil {
		t.Fatalf("allow operator failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected caps update to be allowed")
	}

	allow, err = svc.AllowOperator(1, "/api/v1/admin/quota/jobs/42/caps", "DELETE")
	if err != nil {
		t.Fatalf("allow operator failed: %v", err)
	}
	if allow {
		t.Fatalf("expected other method to be denied")
	}

	allow, err = svc.AllowOperator(2, "/api/v1/admin/quota/jobs/42/caps", "PUT")
	if err != nil {
		t.Fatalf("allow operator failed: %v", err)
	}
	if allow {
		t.Fatalf("expected operator without roles to be denied")
	}
}

func TestAssignRolesReplacesPrevious(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRoute("links", "/admin/affiliate/links", "POST"); err != nil {
		t.Fatalf("grant links failed: %v", err)
	}
	if err := svc.GrantRoute("payouts", "/admin/affiliate/registrations/:id/payout", "POST"); err != nil {
		t.Fatalf("grant payouts failed: %v", err)
	}

	if err := svc.AssignRoles(2, []string{"links"}); err != nil {
		t.Fatalf("assign first role failed: %v", err)
	}
	if err := svc.AssignRoles(2, []string{"payouts"}); err != nil {
		t.Fatalf("assign second role failed: %v", err)
	}
	roles, err := svc.OperatorRoles(2)
	if err != nil {
		t.Fatalf("operator roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:payouts" {
		t.Fatalf("roles want [role:payouts], got=%v", roles)
	}

	allow, _ := svc.AllowOperator(2, "/admin/affiliate/links", "POST")
	if allow {
		t.Fatalf("expected replaced role to lose access")
	}
	allow, _ = svc.AllowOperator(2, "/admin/affiliate/registrations/7/payout", "POST")
	if !allow {
		t.Fatalf("expected new role to grant access")
	}
}

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/risk/users/:user_id", want: "/admin/risk/users/:user_id"},
		{in: "/admin/risk/observations", want: "/admin/risk/observations"},
		{in: "admin/routes", want: "/admin/routes"},
		{in: "/api/v1", want: "/"},
		{in: "/api/v1beta/x", want: "/api/v1beta/x"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		if got := CanonicalPath(item.in); got != item.want {
			t.Fatalf("canonical path in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestCanonicalRole(t *testing.T) {
	if _, err := CanonicalRole("  "); err == nil {
		t.Fatalf("expected empty role to fail")
	}
	got, err := CanonicalRole("role:trust safety")
	if err != nil || got != "role:trust_safety" {
		t.Fatalf("canonical role got=%q err=%v", got, err)
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	roles, err := svc.Roles()
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	want := map[string]bool{
		"role:auditor":       true,
		"role:affiliate_ops": true,
		"role:finance":       true,
		"role:trust_safety":  true,
	}
	for _, role := range roles {
		delete(want, role)
	}
	if len(want) != 0 {
		t.Fatalf("builtin roles missing: %v", want)
	}

	if err := svc.AssignRoles(3, []string{"finance"}); err != nil {
		t.Fatalf("assign finance failed: %v", err)
	}
	allow, _ := svc.AllowOperator(3, "/api/v1/admin/affiliate/payouts/rollup", "GET")
	if !allow {
		t.Fatalf("expected inherited read access")
	}
	allow, _ = svc.AllowOperator(3, "/api/v1/admin/affiliate/registrations/9/payout-status", "PATCH")
	if !allow {
		t.Fatalf("expected finance payout status access")
	}
	allow, _ = svc.AllowOperator(3, "/api/v1/admin/quota/jobs/9/caps", "PUT")
	if allow {
		t.Fatalf("expected finance to be denied quota caps")
	}

	grants, err := svc.OperatorGrants(3)
	if err != nil {
		t.Fatalf("operator grants failed: %v", err)
	}
	if len(grants) != 3 {
		t.Fatalf("want 3 grants (1 inherited read + 2 finance), got=%v", grants)
	}
}

func TestNilServiceUnavailable(t *testing.T) {
	var svc *Service
	if _, err := svc.AllowOperator(1, "/admin/routes", "GET"); err != ErrUnavailable {
		t.Fatalf("want ErrUnavailable, got=%v", err)
	}
}
