package admin

import (
	"errors"
	"io"
	"strings"

	"github.com/jobguard/internal/constants"
	handlershared "github.com/jobguard/internal/http/handlers/shared"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/repository"

	"github.com/gin-gonic/gin"
)

// RejectRegistrationRequest 驳回注册请求
type RejectRegistrationRequest struct {
	Reason string `json:"reason"`
}

// ResolvePayoutRequest 补录佣金请求
type ResolvePayoutRequest struct {
	Amount   models.Money `json:"amount"`
	Currency string       `json:"currency"`
}

// UpdatePayoutStatusRequest 更新结算状态请求
type UpdatePayoutStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListAffiliateRegistrations 查询推广注册
func (h *Handler) ListAffiliateRegistrations(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	createdFrom, err := handlershared.ParseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_time_range", nil)
		return
	}
	createdTo, err := handlershared.ParseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_time_range", nil)
		return
	}
	status := strings.TrimSpace(c.Query("status"))
	if status != "" {
		parsed, ok := constants.ParseRegistrationStatus(status)
		if !ok {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		status = string(parsed)
	}
	rows, total, err := h.AttributionService.ListRegistrations(c.Request.Context(), repository.AffiliateRegistrationListFilter{
		Page:             page,
		PageSize:         pageSize,
		LinkID:           handlershared.QueryUint(c, "link_id"),
		AffiliateUserID:  handlershared.QueryUint(c, "affiliate_user_id"),
		UserID:           handlershared.QueryUint(c, "user_id"),
		Status:           status,
		PayoutStatus:     strings.TrimSpace(c.Query("payout_status")),
		PayoutUnresolved: handlershared.QueryBoolPtr(c, "payout_unresolved"),
		Country:          strings.TrimSpace(c.Query("country")),
		CreatedFrom:      createdFrom,
		CreatedTo:        createdTo,
	})
	if err != nil {
		respondServiceError(c, err, "error.registration_fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ListAffiliateRegistrationEvents 查询注册状态流转记录
func (h *Handler) ListAffiliateRegistrationEvents(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	rows, err := h.AttributionService.ListRegistrationEvents(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "error.registration_fetch_failed")
		return
	}
	response.Success(c, rows)
}

// QualifyAffiliateRegistration 后台触发达标处理
func (h *Handler) QualifyAffiliateRegistration(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	result, queued, err := h.AttributionService.RequestQualify(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	if queued {
		requestLog(c).Infow("admin_affiliate_qualify_queued", "admin_id", adminID, "registration_id", id)
		response.Success(c, gin.H{"registration_id": id, "queued": true})
		return
	}
	requestLog(c).Infow("admin_affiliate_qualify", "admin_id", adminID, "registration_id", id, "outcome", result.Outcome)
	response.Success(c, result)
}

// RejectAffiliateRegistration 驳回待达标注册
func (h *Handler) RejectAffiliateRegistration(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req RejectRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	reg, err := h.AttributionService.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_affiliate_reject", "admin_id", adminID, "registration_id", id)
	response.Success(c, reg)
}

// ResolveAffiliatePayout 补录待定佣金
func (h *Handler) ResolveAffiliatePayout(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req ResolvePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	reg, err := h.AttributionService.ResolvePayout(c.Request.Context(), id, req.Amount, req.Currency)
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_affiliate_payout_resolved", "admin_id", adminID, "registration_id", id)
	response.Success(c, reg)
}

// UpdateAffiliatePayoutStatus 推进结算状态
func (h *Handler) UpdateAffiliatePayoutStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req UpdatePayoutStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	reg, err := h.AttributionService.UpdatePayoutStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_affiliate_payout_status", "admin_id", adminID, "registration_id", id, "status", reg.PayoutStatus)
	response.Success(c, reg)
}

// GetAffiliatePayoutRollup 佣金汇总报表
func (h *Handler) GetAffiliatePayoutRollup(c *gin.Context) {
	from, err := handlershared.ParseTimeNullable(c.Query("from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_time_range", nil)
		return
	}
	to, err := handlershared.ParseTimeNullable(c.Query("to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_time_range", nil)
		return
	}
	rows, err := h.AttributionService.PayoutRollup(c.Request.Context(), repository.PayoutRollupFilter{
		AffiliateUserID: handlershared.QueryUint(c, "affiliate_user_id"),
		OfferID:         handlershared.QueryUint(c, "offer_id"),
		QualifiedFrom:   from,
		QualifiedTo:     to,
	})
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.Success(c, rows)
}
