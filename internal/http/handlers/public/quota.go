package public

import (
	"time"

	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AdmitApplication 为当前用户申请职位投递名额
func (h *Handler) AdmitApplication(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	jobPostID, ok := paramUint(c, "job_id")
	if !ok {
		return
	}
	result, err := h.QuotaService.TryAdmit(c.Request.Context(), jobPostID, uid, time.Time{})
	if err != nil {
		respondServiceError(c, err, "error.quota_admit_failed")
		return
	}
	if result.Outcome == constants.AdmissionDenied {
		// 风控拒绝不暴露具体原因
		requestLog(c).Infow("quota_admission_rejected", "job_post_id", jobPostID, "user_id", uid)
		respondError(c, response.CodeForbidden, "error.request_rejected", nil)
		return
	}
	response.Success(c, result)
}

// ReleaseApplication 撤回投递后归还名额
func (h *Handler) ReleaseApplication(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	jobPostID, ok := paramUint(c, "job_id")
	if !ok {
		return
	}
	released, err := h.QuotaService.Release(c.Request.Context(), jobPostID, uid, time.Time{})
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	response.Success(c, gin.H{"released": released})
}

// GetJobQuota 查询职位当前名额使用情况
func (h *Handler) GetJobQuota(c *gin.Context) {
	jobPostID, ok := paramUint(c, "job_id")
	if !ok {
		return
	}
	usage, err := h.QuotaService.GetUsage(c.Request.Context(), jobPostID, time.Time{})
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.Success(c, usage)
}
