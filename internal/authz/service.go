package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiPrefix    = "/api/v1"
	ruleTable    = "jg_admin_rules"
	adminSubject = "operator:%d"
	rolePrefix   = "role:"
	roleMarker   = "role:__declared__"
)

// ErrUnavailable 授权服务未初始化
var ErrUnavailable = errors.New("authz service unavailable")

const operatorRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Grant 单条路由授权
type Grant struct {
	Role   string `json:"role,omitempty"`
	Path   string `json:"path"`
	Method string `json:"method"`
}

// Service 后台操作员授权
// 角色和策略持久化在数据库中，路由按 keyMatch2 匹配
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", ruleTable)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(operatorRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// AllowOperator 判断操作员能否调用某个后台路由
func (s *Service) AllowOperator(operatorID uint, path, method string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(OperatorSubject(operatorID), CanonicalPath(path), CanonicalMethod(method))
}

// DeclareRole 登记角色，已存在时直接返回
func (s *Service) DeclareRole(role string) (string, error) {
	name, err := CanonicalRole(role)
	if err != nil {
		return "", err
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	if name == roleMarker {
		return "", fmt.Errorf("role %q is reserved", role)
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", name, roleMarker); err != nil {
		return "", fmt.Errorf("declare role failed: %w", err)
	}
	return name, nil
}

// Roles 所有已登记角色
func (s *Service) Roles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 1, roleMarker)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 0 {
			roles = append(roles, rule[0])
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// GrantRoute 给角色授权一个路由
func (s *Service) GrantRoute(role, path, method string) error {
	name, err := s.DeclareRole(role)
	if err != nil {
		return err
	}
	verb := CanonicalMethod(method)
	if verb == "" {
		return fmt.Errorf("method is required")
	}
	if _, err := s.enforcer.AddPolicy(name, CanonicalPath(path), verb); err != nil {
		return fmt.Errorf("grant route failed: %w", err)
	}
	return nil
}

// AssignRoles 覆盖操作员的角色集合
func (s *Service) AssignRoles(operatorID uint, roles []string) error {
	if operatorID == 0 {
		return fmt.Errorf("operator id is required")
	}
	if err := s.ready(); err != nil {
		return err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		name, err := s.DeclareRole(role)
		if err != nil {
			return err
		}
		names = append(names, name)
	}
	subject := OperatorSubject(operatorID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear operator roles failed: %w", err)
	}
	for _, name := range names {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, name); err != nil {
			return fmt.Errorf("assign operator role failed: %w", err)
		}
	}
	return nil
}

// OperatorRoles 操作员直接持有的角色
func (s *Service) OperatorRoles(operatorID uint) ([]string, error) {
	if operatorID == 0 {
		return nil, fmt.Errorf("operator id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(OperatorSubject(operatorID))
	if err != nil {
		return nil, fmt.Errorf("get operator roles failed: %w", err)
	}
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if strings.HasPrefix(role, rolePrefix) && role != roleMarker {
			out = append(out, role)
		}
	}
	sort.Strings(out)
	return out, nil
}

// OperatorGrants 操作员经由角色继承得到的全部路由授权
func (s *Service) OperatorGrants(operatorID uint) ([]Grant, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetImplicitRolesForUser(OperatorSubject(operatorID))
	if err != nil {
		return nil, fmt.Errorf("resolve operator roles failed: %w", err)
	}
	seen := map[Grant]struct{}{}
	grants := make([]Grant, 0)
	for _, role := range roles {
		if role == roleMarker {
			continue
		}
		rules, err := s.enforcer.GetFilteredPolicy(0, role)
		if err != nil {
			return nil, fmt.Errorf("get role grants failed: %w", err)
		}
		for _, rule := range rules {
			if len(rule) < 3 {
				continue
			}
			g := Grant{Role: rule[0], Path: rule[1], Method: rule[2]}
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			grants = append(grants, g)
		}
	}
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Path != grants[j].Path {
			return grants[i].Path < grants[j].Path
		}
		if grants[i].Method != grants[j].Method {
			return grants[i].Method < grants[j].Method
		}
		return grants[i].Role < grants[j].Role
	})
	return grants, nil
}

// OperatorSubject 操作员在策略中的主体名
func OperatorSubject(operatorID uint) string {
	return fmt.Sprintf(adminSubject, operatorID)
}

// CanonicalRole 角色名加上 role: 前缀
func CanonicalRole(role string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	name = strings.TrimPrefix(name, rolePrefix)
	if name == "" {
		return "", fmt.Errorf("role is required")
	}
	return rolePrefix + name, nil
}

// CanonicalPath 去掉 /api/v1 前缀
func CanonicalPath(path string) string {
	p := strings.TrimSpace(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p == apiPrefix {
		return "/"
	}
	if strings.HasPrefix(p, apiPrefix+"/") {
		return strings.TrimPrefix(p, apiPrefix)
	}
	return p
}

// CanonicalMethod 大写的 HTTP 方法
func CanonicalMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}
