package admin

import (
	"time"

	handlershared "github.com/jobguard/internal/http/handlers/shared"
	"github.com/jobguard/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SetQuotaCapsRequest 设置职位投递额度请求
type SetQuotaCapsRequest struct {
	AllowedPerDay   *int64 `json:"allowed_per_day" binding:"required"`
	CumulativeLimit *int64 `json:"cumulative_limit" binding:"required"`
}

// SetJobQuotaCaps 设置职位每日与累计投递上限，0 表示关闭
func (h *Handler) SetJobQuotaCaps(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	jobPostID, ok := paramUint(c, "job_id")
	if !ok {
		return
	}
	var req SetQuotaCapsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	usage, err := h.QuotaService.SetCaps(c.Request.Context(), jobPostID, *req.AllowedPerDay, *req.CumulativeLimit)
	if err != nil {
		respondServiceError(c, err, "error.save_failed")
		return
	}
	requestLog(c).Infow("admin_quota_caps_updated",
		"admin_id", adminID,
		"job_post_id", jobPostID,
		"allowed_per_day", usage.AllowedPerDay,
		"cumulative_limit", usage.CumulativeLimit,
	)
	response.Success(c, usage)
}

// GetJobQuotaUsage 查询职位当前额度快照
func (h *Handler) GetJobQuotaUsage(c *gin.Context) {
	jobPostID, ok := paramUint(c, "job_id")
	if !ok {
		return
	}
	at, err := handlershared.ParseTimeNullable(c.Query("at"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_time_range", nil)
		return
	}
	var point time.Time
	if at != nil {
		point = *at
	}
	usage, err := h.QuotaService.GetUsage(c.Request.Context(), jobPostID, point)
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.Success(c, usage)
}

// ListJobQuotaDaily 查询职位按日额度明细
func (h *Handler) ListJobQuotaDaily(c *gin.Context) {
	jobPostID, ok := paramUint(c, "job_id")
	if !ok {
		return
	}
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
	var start, end time.Time
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		respondError(c, response.CodeBadRequest, "error.invalid_time_range", nil)
		return
	}
	rows, err := h.QuotaService.ListDailyUsage(c.Request.Context(), jobPostID, start, end)
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.Success(c, rows)
}
