package admin

import (
	handlershared "github.com/jobguard/internal/http/handlers/shared"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListReferralLinks 查询职位推荐链接
func (h *Handler) ListReferralLinks(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	rows, total, err := h.ReferralService.ListLinks(c.Request.Context(), repository.ReferralLinkListFilter{
		Page:           page,
		PageSize:       pageSize,
		ReferrerUserID: handlershared.QueryUint(c, "referrer_user_id"),
		JobPostID:      handlershared.QueryUint(c, "job_post_id"),
	})
	if err != nil {
		respondServiceError(c, err, "error.fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
