package public

import (
	"strings"

	handlershared "github.com/jobguard/internal/http/handlers/shared"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/repository"
	"github.com/jobguard/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateClickRequest 推广点击记录请求
type AffiliateClickRequest struct {
	Code    string `json:"code" binding:"required"`
	ClickID string `json:"click_id"`
	Country string `json:"country"`
	Sub1    string `json:"sub1"`
	Sub2    string `json:"sub2"`
	Sub3    string `json:"sub3"`
	Sub4    string `json:"sub4"`
	Sub5    string `json:"sub5"`
}

// AffiliateAttributeRequest 注册归因请求
type AffiliateAttributeRequest struct {
	Code    string `json:"code" binding:"required"`
	Role    string `json:"role" binding:"required"`
	ClickID string `json:"click_id"`
}

// CreateAffiliateLinkRequest 推广者创建推广链接请求
type CreateAffiliateLinkRequest struct {
	OfferID     uint   `json:"offer_id" binding:"required"`
	LandingPath string `json:"landing_path"`
}

// AffiliateLinkInfo 对外公开的推广链接信息
type AffiliateLinkInfo struct {
	Code        string `json:"code"`
	LandingPath string `json:"landing_path"`
	HeadSnippet string `json:"head_snippet"`
	BodySnippet string `json:"body_snippet"`
	TargetRole  string `json:"target_role,omitempty"`
}

// GetAffiliateLink 查询推广链接落地信息
func (h *Handler) GetAffiliateLink(c *gin.Context) {
	link, err := h.AttributionService.GetLink(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	info := AffiliateLinkInfo{
		Code:        link.Code,
		LandingPath: link.LandingPath,
		HeadSnippet: link.HeadSnippet,
		BodySnippet: link.BodySnippet,
	}
	if link.Offer != nil {
		info.TargetRole = string(link.Offer.TargetRole)
	}
	response.Success(c, info)
}

// TrackAffiliateClick 记录推广点击
func (h *Handler) TrackAffiliateClick(c *gin.Context) {
	var req AffiliateClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	transport := newClickIDTransport(h.Config)
	clickID, duplicate, err := h.AttributionService.RecordClick(c.Request.Context(), service.ClickInput{
		LinkCode:      req.Code,
		ClientClickID: transport.read(c, req.ClickID),
		IP:            c.ClientIP(),
		UserAgent:     c.GetHeader("User-Agent"),
		Country:       req.Country,
		Sub1:          req.Sub1,
		Sub2:          req.Sub2,
		Sub3:          req.Sub3,
		Sub4:          req.Sub4,
		Sub5:          req.Sub5,
	})
	if err != nil {
		respondServiceError(c, err, "error.click_record_failed")
		return
	}
	transport.write(c, clickID)
	response.Success(c, gin.H{
		"click_id":  clickID,
		"duplicate": duplicate,
	})
}

// AttributeRegistration 将当前用户的注册归因到推广链接，达标由后续业务事件触发
func (h *Handler) AttributeRegistration(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AffiliateAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	transport := newClickIDTransport(h.Config)
	result, err := h.AttributionService.Attribute(c.Request.Context(), service.AttributeInput{
		LinkCode: req.Code,
		UserID:   uid,
		Role:     req.Role,
		ClickID:  transport.read(c, req.ClickID),
	})
	if err != nil {
		respondServiceError(c, err, "error.attribution_failed")
		return
	}

	response.Success(c, gin.H{
		"registration":  result.Registration,
		"existing":      result.Existing,
		"role_mismatch": result.RoleMismatch,
	})
}

// CreateAffiliateLink 推广者创建推广链接
func (h *Handler) CreateAffiliateLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateAffiliateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	link, err := h.AttributionService.CreateLink(c.Request.Context(), service.CreateLinkInput{
		AffiliateUserID: uid,
		OfferID:         req.OfferID,
		LandingPath:     strings.TrimSpace(req.LandingPath),
	})
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	response.Success(c, link)
}

// ListMyAffiliateLinks 查询我的推广链接
func (h *Handler) ListMyAffiliateLinks(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.QueryPagination(c)
	rows, total, err := h.AttributionService.ListLinks(c.Request.Context(), repository.AffiliateLinkListFilter{
		Page:            page,
		PageSize:        pageSize,
		AffiliateUserID: uid,
	})
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ListMyAffiliateRegistrations 查询我带来的注册
func (h *Handler) ListMyAffiliateRegistrations(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.QueryPagination(c)
	rows, total, err := h.AttributionService.ListRegistrations(c.Request.Context(), repository.AffiliateRegistrationListFilter{
		Page:            page,
		PageSize:        pageSize,
		AffiliateUserID: uid,
		Status:          strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err, "error.registration_fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
