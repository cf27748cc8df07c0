package authz

import "fmt"

// RoleSeed 预置角色
type RoleSeed struct {
	Role     string
	Inherits []string
	Grants   []Grant
}

// BuiltinRoleSeeds 后台预置角色
// auditor 只读，其余角色在只读基础上各自负责一块写操作
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:   "auditor",
			Grants: []Grant{{Path: "/admin/*", Method: "GET"}},
		},
		{
			Role:     "affiliate_ops",
			Inherits: []string{"auditor"},
			Grants: []Grant{
				{Path: "/admin/affiliate/offers", Method: "POST"},
				{Path: "/admin/affiliate/offers/:id/geo-rules", Method: "PUT"},
				{Path: "/admin/affiliate/links", Method: "POST"},
				{Path: "/admin/affiliate/links/:id/active", Method: "PATCH"},
				{Path: "/admin/affiliate/registrations/:id/qualify", Method: "POST"},
				{Path: "/admin/affiliate/registrations/:id/reject", Method: "POST"},
			},
		},
		{
			Role:     "finance",
			Inherits: []string{"auditor"},
			Grants: []Grant{
				{Path: "/admin/affiliate/registrations/:id/payout", Method: "POST"},
				{Path: "/admin/affiliate/registrations/:id/payout-status", Method: "PATCH"},
			},
		},
		{
			Role:     "trust_safety",
			Inherits: []string{"auditor"},
			Grants: []Grant{
				{Path: "/admin/quota/jobs/:job_id/caps", Method: "PUT"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色，重复执行无副作用
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.DeclareRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.DeclareRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role %s to %s failed: %w", role, parentRole, err)
			}
		}
		for _, grant := range seed.Grants {
			if err := s.GrantRoute(role, grant.Path, grant.Method); err != nil {
				return err
			}
		}
	}
	return nil
}
