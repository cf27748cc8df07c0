package admin

import (
	"strings"

	handlershared "github.com/jobguard/internal/http/handlers/shared"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetUserRiskScore 查询用户风险评分与判定
func (h *Handler) GetUserRiskScore(c *gin.Context) {
	userID, ok := paramUint(c, "user_id")
	if !ok {
		return
	}
	breakdown, err := h.RiskService.Explain(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	threshold := h.RiskService.Threshold()
	response.Success(c, gin.H{
		"user_id":   userID,
		"score":     breakdown.Score,
		"threshold": threshold,
		"high_risk": breakdown.Score >= threshold,
		"breakdown": breakdown,
	})
}

// ListRiskObservations 查询设备指纹观测
func (h *Handler) ListRiskObservations(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	seenFrom, err := handlershared.ParseTimeNullable(c.Query("seen_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_time_range", nil)
		return
	}
	rows, total, err := h.RiskService.ListObservations(c.Request.Context(), repository.RiskObservationListFilter{
		Page:            page,
		PageSize:        pageSize,
		UserID:          handlershared.QueryUint(c, "user_id"),
		FingerprintHash: strings.TrimSpace(c.Query("fingerprint_hash")),
		IP:              strings.TrimSpace(c.Query("ip")),
		SeenFrom:        seenFrom,
	})
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
