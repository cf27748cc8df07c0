package admin

import (
	"errors"

	"github.com/jobguard/internal/authz"
	"github.com/jobguard/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AssignOperatorRolesRequest 覆盖操作员角色
type AssignOperatorRolesRequest struct {
	Roles []string `json:"roles"`
}

func (h *Handler) respondAuthzError(c *gin.Context, err error, key string) {
	if errors.Is(err, authz.ErrUnavailable) {
		respondError(c, response.CodeUnavailable, "error.authz_unavailable", err)
		return
	}
	respondError(c, response.CodeBadRequest, key, err)
}

// ListAuthzRoles 列出后台角色
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.Authz.Roles()
	if err != nil {
		h.respondAuthzError(c, err, "error.fetch_failed")
		return
	}
	response.Success(c, roles)
}

// GetOperatorAuthz 查询操作员角色与生效路由
func (h *Handler) GetOperatorAuthz(c *gin.Context) {
	operatorID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	roles, err := h.Authz.OperatorRoles(operatorID)
	if err != nil {
		h.respondAuthzError(c, err, "error.fetch_failed")
		return
	}
	grants, err := h.Authz.OperatorGrants(operatorID)
	if err != nil {
		h.respondAuthzError(c, err, "error.fetch_failed")
		return
	}
	response.Success(c, gin.H{
		"operator_id": operatorID,
		"roles":       roles,
		"grants":      grants,
	})
}

// AssignOperatorRoles 覆盖操作员角色
func (h *Handler) AssignOperatorRoles(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	operatorID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req AssignOperatorRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.Authz.AssignRoles(operatorID, req.Roles); err != nil {
		h.respondAuthzError(c, err, "error.role_invalid")
		return
	}
	requestLog(c).Infow("admin_operator_roles_assigned", "admin_id", adminID, "operator_id", operatorID, "roles", req.Roles)
	roles, err := h.Authz.OperatorRoles(operatorID)
	if err != nil {
		h.respondAuthzError(c, err, "error.fetch_failed")
		return
	}
	response.Success(c, gin.H{"operator_id": operatorID, "roles": roles})
}
