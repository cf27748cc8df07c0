package public

import (
	"github.com/jobguard/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RiskObservationRequest 设备指纹上报请求
type RiskObservationRequest struct {
	FingerprintHash string `json:"fingerprint_hash" binding:"required"`
}

// ReportFingerprint 上报当前用户的设备指纹，IP 取自请求
func (h *Handler) ReportFingerprint(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req RiskObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.RiskService.RecordRequest(c.Request.Context(), uid, req.FingerprintHash, c.ClientIP()); err != nil {
		respondServiceError(c, err, "error.risk_record_failed")
		return
	}
	response.Success(c, gin.H{"ok": true})
}
