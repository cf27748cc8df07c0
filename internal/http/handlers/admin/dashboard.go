package admin

import (
	"errors"
	"strconv"
	"strings"

	handlershared "github.com/jobguard/internal/http/handlers/shared"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/service"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 获取后台看板总览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	data, err := h.DashboardService.GetOverview(c.Request.Context(), input)
	if err != nil {
		respondDashboardError(c, err)
		return
	}

	response.Success(c, data)
}

// GetDashboardRankings 获取后台看板排行榜
func (h *Handler) GetDashboardRankings(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	data, err := h.DashboardService.GetRankings(c.Request.Context(), input)
	if err != nil {
		respondDashboardError(c, err)
		return
	}

	response.Success(c, data)
}

// GetDashboardTrends 获取后台看板趋势
func (h *Handler) GetDashboardTrends(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	data, err := h.DashboardService.GetTrends(c.Request.Context(), input)
	if err != nil {
		respondDashboardError(c, err)
		return
	}

	response.Success(c, data)
}

func respondDashboardError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrDashboardRangeInvalid) {
		respondError(c, response.CodeBadRequest, "error.invalid_time_range", nil)
		return
	}
	respondServiceError(c, err, "error.dashboard_fetch_failed")
}

func parseDashboardQuery(c *gin.Context) (service.DashboardQueryInput, error) {
	rangeRaw := strings.TrimSpace(c.DefaultQuery("range", "7d"))
	timezone := strings.TrimSpace(c.Query("tz"))
	forceRefreshRaw := strings.TrimSpace(c.Query("force_refresh"))

	from, err := handlershared.ParseTimeNullable(c.Query("from"))
	if err != nil {
		return service.DashboardQueryInput{}, err
	}
	to, err := handlershared.ParseTimeNullable(c.Query("to"))
	if err != nil {
		return service.DashboardQueryInput{}, err
	}

	forceRefresh := false
	if forceRefreshRaw != "" {
		parsed, err := strconv.ParseBool(forceRefreshRaw)
		if err != nil {
			return service.DashboardQueryInput{}, err
		}
		forceRefresh = parsed
	}

	return service.DashboardQueryInput{
		Range:        rangeRaw,
		From:         from,
		To:           to,
		Timezone:     timezone,
		ForceRefresh: forceRefresh,
	}, nil
}
