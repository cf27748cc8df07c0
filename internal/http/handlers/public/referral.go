package public

import (
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/service"

	"github.com/gin-gonic/gin"
)

// ReferralClickRequest 推荐点击请求
type ReferralClickRequest struct {
	Code    string `json:"code" binding:"required"`
	ClickID string `json:"click_id"`
}

// ReferralRegistrationRequest 推荐注册请求
type ReferralRegistrationRequest struct {
	Code    string `json:"code" binding:"required"`
	ClickID string `json:"click_id"`
}

// CreateReferralLinkRequest 创建推荐链接请求
type CreateReferralLinkRequest struct {
	JobPostID *uint `json:"job_post_id"`
}

// TrackReferralClick 记录推荐点击
func (h *Handler) TrackReferralClick(c *gin.Context) {
	var req ReferralClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	transport := newClickIDTransport(h.Config)
	clickID, duplicate, err := h.ReferralService.RecordClick(c.Request.Context(), service.ReferralClickInput{
		Code:          req.Code,
		ClientClickID: transport.read(c, req.ClickID),
		IP:            c.ClientIP(),
		UserAgent:     c.GetHeader("User-Agent"),
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

// RecordReferralRegistration 记录当前用户通过推荐链接注册
func (h *Handler) RecordReferralRegistration(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ReferralRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	transport := newClickIDTransport(h.Config)
	reg, existing, err := h.ReferralService.RecordRegistration(c.Request.Context(), req.Code, uid, transport.read(c, req.ClickID))
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	response.Success(c, gin.H{
		"registration": reg,
		"existing":     existing,
	})
}

// CreateReferralLink 创建推荐链接
func (h *Handler) CreateReferralLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateReferralLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	link, err := h.ReferralService.CreateLink(c.Request.Context(), uid, req.JobPostID)
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	response.Success(c, link)
}

// GetReferralLinkStats 查询推荐链接统计
func (h *Handler) GetReferralLinkStats(c *gin.Context) {
	stats, err := h.ReferralService.GetLinkStats(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.Success(c, stats)
}
