package admin

import (
	"strings"

	handlershared "github.com/jobguard/internal/http/handlers/shared"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/repository"
	"github.com/jobguard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateOfferRequest 创建推广活动请求
type CreateOfferRequest struct {
	Name                   string           `json:"name" binding:"required"`
	TargetRole             string           `json:"target_role" binding:"required"`
	PayoutModel            string           `json:"payout_model" binding:"required"`
	DefaultCPAAmount       *decimal.Decimal `json:"default_cpa_amount"`
	DefaultRevsharePercent *decimal.Decimal `json:"default_revshare_percent"`
	Currency               string           `json:"currency"`
	IsActive               *bool            `json:"is_active"`
}

// GeoRuleRequest 地区佣金规则请求
type GeoRuleRequest struct {
	Country         string           `json:"country" binding:"required"`
	CPAAmount       *decimal.Decimal `json:"cpa_amount"`
	RevsharePercent *decimal.Decimal `json:"revshare_percent"`
	Currency        string           `json:"currency"`
	IsActive        *bool            `json:"is_active"`
}

// CreateLinkRequest 后台为推广者创建推广链接请求
type CreateLinkRequest struct {
	AffiliateUserID uint   `json:"affiliate_user_id" binding:"required"`
	OfferID         uint   `json:"offer_id" binding:"required"`
	LandingPath     string `json:"landing_path"`
	HeadSnippet     string `json:"head_snippet"`
	BodySnippet     string `json:"body_snippet"`
}

// SetLinkActiveRequest 启停推广链接请求
type SetLinkActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// CreateAffiliateOffer 创建推广活动
func (h *Handler) CreateAffiliateOffer(c *gin.Context) {
	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	offer, err := h.AttributionService.CreateOffer(c.Request.Context(), service.CreateOfferInput{
		Name:                   req.Name,
		TargetRole:             req.TargetRole,
		PayoutModel:            req.PayoutModel,
		DefaultCPAAmount:       req.DefaultCPAAmount,
		DefaultRevsharePercent: req.DefaultRevsharePercent,
		Currency:               req.Currency,
		IsActive:               boolOrDefault(req.IsActive, true),
	})
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	response.Success(c, offer)
}

// ListAffiliateOffers 查询推广活动
func (h *Handler) ListAffiliateOffers(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	activeOnly := false
	if v := handlershared.QueryBoolPtr(c, "active_only"); v != nil {
		activeOnly = *v
	}
	rows, total, err := h.AttributionService.ListOffers(c.Request.Context(), repository.AffiliateOfferListFilter{
		Page:       page,
		PageSize:   pageSize,
		TargetRole: strings.TrimSpace(c.Query("target_role")),
		ActiveOnly: activeOnly,
		Keyword:    strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// UpsertAffiliateGeoRule 创建或覆盖地区佣金规则
func (h *Handler) UpsertAffiliateGeoRule(c *gin.Context) {
	offerID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req GeoRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rule, err := h.AttributionService.UpsertGeoRule(c.Request.Context(), service.GeoRuleInput{
		OfferID:         offerID,
		Country:         req.Country,
		CPAAmount:       req.CPAAmount,
		RevsharePercent: req.RevsharePercent,
		Currency:        req.Currency,
		IsActive:        boolOrDefault(req.IsActive, true),
	})
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	response.Success(c, rule)
}

// CreateAffiliateLink 后台创建推广链接（可带追踪代码）
func (h *Handler) CreateAffiliateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	link, err := h.AttributionService.CreateLink(c.Request.Context(), service.CreateLinkInput{
		AffiliateUserID: req.AffiliateUserID,
		OfferID:         req.OfferID,
		LandingPath:     req.LandingPath,
		HeadSnippet:     req.HeadSnippet,
		BodySnippet:     req.BodySnippet,
	})
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	response.Success(c, link)
}

// ListAffiliateLinks 查询推广链接
func (h *Handler) ListAffiliateLinks(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	rows, total, err := h.AttributionService.ListLinks(c.Request.Context(), repository.AffiliateLinkListFilter{
		Page:            page,
		PageSize:        pageSize,
		AffiliateUserID: handlershared.QueryUint(c, "affiliate_user_id"),
		OfferID:         handlershared.QueryUint(c, "offer_id"),
		Code:            strings.TrimSpace(c.Query("code")),
		IsActive:        handlershared.QueryBoolPtr(c, "is_active"),
	})
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// SetAffiliateLinkActive 启用或停用推广链接
func (h *Handler) SetAffiliateLinkActive(c *gin.Context) {
	linkID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req SetLinkActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	link, err := h.AttributionService.SetLinkActive(c.Request.Context(), linkID, *req.IsActive)
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	response.Success(c, link)
}
