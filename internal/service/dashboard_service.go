package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jobguard/internal/cache"
	"github.com/jobguard/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
	dashboardTopLinksLimit = 10
)

// ErrDashboardRangeInvalid 看板时间范围无效
var ErrDashboardRangeInvalid = errors.New("看板时间范围无效")

// DashboardService 归因与风控看板服务
// 说明：聚合后台首页的推广转化与风险信号数据，只读。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建看板服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 看板查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 看板总览响应
type DashboardOverviewResponse struct {
	Range    string               `json:"range"`
	From     string               `json:"from"`
	To       string               `json:"to"`
	Timezone string               `json:"timezone"`
	KPI      DashboardKPI         `json:"kpi"`
	Funnel   DashboardFunnel      `json:"funnel"`
	Alerts   []DashboardAlertItem `json:"alerts"`
}

// DashboardKPI 看板核心指标
type DashboardKPI struct {
	ClicksTotal          int64 `json:"clicks_total"`
	RegistrationsTotal   int64 `json:"registrations_total"`
	PendingRegistrations int64 `json:"pending_registrations"`
	QualifiedTotal       int64 `json:"qualified_total"`
	UnqualifiedTotal     int64 `json:"unqualified_total"`
	RoleMismatchTotal    int64 `json:"role_mismatch_total"`
	UnresolvedPayouts    int64 `json:"unresolved_payouts"`
	ObservationsTotal    int64 `json:"observations_total"`
	ProxyObservations    int64 `json:"proxy_observations"`
	HostingObservations  int64 `json:"hosting_observations"`
	ActiveLinks          int64 `json:"active_links"`
}

// DashboardFunnel 看板转化漏斗
type DashboardFunnel struct {
	Clicks            int64  `json:"clicks"`
	Registrations     int64  `json:"registrations"`
	Qualified         int64  `json:"qualified"`
	RegistrationRate  string `json:"registration_rate"`
	QualificationRate string `json:"qualification_rate"`
}

// DashboardAlertItem 看板告警项
type DashboardAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

// DashboardTrendResponse 看板趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date          string `json:"date"`
	Clicks        int64  `json:"clicks"`
	Registrations int64  `json:"registrations"`
	Qualified     int64  `json:"qualified"`
}

// DashboardRankingsResponse 看板排行响应
type DashboardRankingsResponse struct {
	Range    string                 `json:"range"`
	From     string                 `json:"from"`
	To       string                 `json:"to"`
	Timezone string                 `json:"timezone"`
	TopLinks []DashboardLinkRanking `json:"top_links"`
}

// DashboardLinkRanking 推广链接排行项
type DashboardLinkRanking struct {
	LinkID          uint   `json:"link_id"`
	Code            string `json:"code"`
	AffiliateUserID uint   `json:"affiliate_user_id"`
	Clicks          int64  `json:"clicks"`
	Registrations   int64  `json:"registrations"`
	Qualified       int64  `json:"qualified"`
	ConversionRate  string `json:"conversion_rate"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

func (w dashboardWindow) cacheKey(kind string) string {
	return fmt.Sprintf("dashboard:%s:%s:%d:%d:%s", kind, w.rangeKey, w.startAt.Unix(), w.endAt.Unix(), w.timezone)
}

// GetOverview 获取看板总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}
	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}
	cacheKey := window.cacheKey("overview")
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.WithContext(ctx).GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, wrapStorageError("dashboard overview", err)
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		KPI: DashboardKPI{
			ClicksTotal:          overview.ClicksTotal,
			RegistrationsTotal:   overview.RegistrationsTotal,
			PendingRegistrations: overview.PendingRegistrations,
			QualifiedTotal:       overview.QualifiedTotal,
			UnqualifiedTotal:     overview.UnqualifiedTotal,
			RoleMismatchTotal:    overview.RoleMismatchTotal,
			UnresolvedPayouts:    overview.UnresolvedPayouts,
			ObservationsTotal:    overview.ObservationsTotal,
			ProxyObservations:    overview.ProxyObservations,
			HostingObservations:  overview.HostingObservations,
			ActiveLinks:          overview.ActiveLinks,
		},
		Funnel: DashboardFunnel{
			Clicks:            overview.ClicksTotal,
			Registrations:     overview.RegistrationsTotal,
			Qualified:         overview.QualifiedTotal,
			RegistrationRate:  formatPercentValue(calcConversionRate(overview.RegistrationsTotal, overview.ClicksTotal)),
			QualificationRate: formatPercentValue(calcConversionRate(overview.QualifiedTotal, overview.RegistrationsTotal)),
		},
		Alerts: buildDashboardAlerts(overview),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取按日趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}
	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}
	cacheKey := window.cacheKey("trends")
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.WithContext(ctx).GetAttributionTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, wrapStorageError("dashboard trends", err)
	}
	points := make([]DashboardTrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, DashboardTrendPoint{
			Date:          row.Day,
			Clicks:        row.Clicks,
			Registrations: row.Registrations,
			Qualified:     row.Qualified,
		})
	}
	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}
	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings 获取推广链接排行
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}
	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}
	cacheKey := window.cacheKey("rankings")
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.WithContext(ctx).GetTopLinks(window.startAt, window.endAt, dashboardTopLinksLimit)
	if err != nil {
		return nil, wrapStorageError("dashboard rankings", err)
	}
	links := make([]DashboardLinkRanking, 0, len(rows))
	for _, row := range rows {
		links = append(links, DashboardLinkRanking{
			LinkID:          row.LinkID,
			Code:            row.Code,
			AffiliateUserID: row.AffiliateUserID,
			Clicks:          row.Clicks,
			Registrations:   row.Registrations,
			Qualified:       row.Qualified,
			ConversionRate:  formatPercentValue(calcConversionRate(row.Registrations, row.Clicks)),
		})
	}
	response := &DashboardRankingsResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		TopLinks: links,
	}
	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.UTC
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func buildDashboardAlerts(overview repository.DashboardOverviewRow) []DashboardAlertItem {
	alerts := make([]DashboardAlertItem, 0, 3)
	if overview.UnresolvedPayouts > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "unresolved_payouts", Level: "warning", Value: overview.UnresolvedPayouts})
	}
	if overview.HostingObservations > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "hosting_observations", Level: "error", Value: overview.HostingObservations})
	}
	if overview.RoleMismatchTotal > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "role_mismatch", Level: "info", Value: overview.RoleMismatchTotal})
	}
	return alerts
}
