package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 归因与风控看板聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	WithContext(ctx context.Context) DashboardRepository
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetAttributionTrends(startAt, endAt time.Time) ([]DashboardAttributionTrendRow, error)
	GetTopLinks(startAt, endAt time.Time, limit int) ([]DashboardLinkRankingRow, error)
}

// DashboardOverviewRow 看板总览原始统计结果
type DashboardOverviewRow struct {
	ClicksTotal          int64
	RegistrationsTotal   int64
	PendingRegistrations int64
	QualifiedTotal       int64
	UnqualifiedTotal     int64
	RoleMismatchTotal    int64
	UnresolvedPayouts    int64
	ObservationsTotal    int64
	ProxyObservations    int64
	HostingObservations  int64
	ActiveLinks          int64
}

// DashboardAttributionTrendRow 点击与注册趋势
type DashboardAttributionTrendRow struct {
	Day           string
	Clicks        int64
	Registrations int64
	Qualified     int64
}

// DashboardLinkRankingRow 推广链接排行原始行
type DashboardLinkRankingRow struct {
	LinkID          uint
	Code            string
	AffiliateUserID uint
	Clicks          int64
	Registrations   int64
	Qualified       int64
}

// GormDashboardRepository GORM 看板聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建看板仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// WithContext 绑定请求上下文
func (r *GormDashboardRepository) WithContext(ctx context.Context) DashboardRepository {
	if ctx == nil {
		return r
	}
	return &GormDashboardRepository{db: r.db.WithContext(ctx)}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	if err := r.db.Model(&models.AffiliateClick{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.ClicksTotal).Error; err != nil {
		return result, err
	}

	registrationBase := func() *gorm.DB {
		return r.db.Model(&models.AffiliateRegistration{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := registrationBase().Count(&result.RegistrationsTotal).Error; err != nil {
		return result, err
	}
	if err := registrationBase().Where("status = ?", constants.RegistrationStatusPending).Count(&result.PendingRegistrations).Error; err != nil {
		return result, err
	}
	if err := registrationBase().Where("status = ?", constants.RegistrationStatusQualified).Count(&result.QualifiedTotal).Error; err != nil {
		return result, err
	}
	if err := registrationBase().Where("status = ?", constants.RegistrationStatusUnqualified).Count(&result.UnqualifiedTotal).Error; err != nil {
		return result, err
	}
	if err := registrationBase().Where("role_mismatch = ?", true).Count(&result.RoleMismatchTotal).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.AffiliateRegistration{}).
		Where("status = ? AND payout_unresolved = ?", constants.RegistrationStatusQualified, true).
		Count(&result.UnresolvedPayouts).Error; err != nil {
		return result, err
	}

	observationBase := func() *gorm.DB {
		return r.db.Model(&models.FingerprintObservation{}).
			Where("last_seen_at >= ? AND last_seen_at < ?", startAt, endAt)
	}
	if err := observationBase().Count(&result.ObservationsTotal).Error; err != nil {
		return result, err
	}
	if err := observationBase().Where("is_proxy = ?", true).Count(&result.ProxyObservations).Error; err != nil {
		return result, err
	}
	if err := observationBase().Where("is_hosting = ?", true).Count(&result.HostingObservations).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.AffiliateLink{}).
		Where("is_active = ?", true).
		Count(&result.ActiveLinks).Error; err != nil {
		return result, err
	}
	return result, nil
}

// GetAttributionTrends 获取按日点击、注册、达标趋势
func (r *GormDashboardRepository) GetAttributionTrends(startAt, endAt time.Time) ([]DashboardAttributionTrendRow, error) {
	type countRow struct {
		Day   string
		Total int64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"

	var clickRows []countRow
	if err := r.db.Model(&models.AffiliateClick{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&clickRows).Error; err != nil {
		return nil, err
	}

	var registrationRows []countRow
	if err := r.db.Model(&models.AffiliateRegistration{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&registrationRows).Error; err != nil {
		return nil, err
	}

	qualifiedDayExpr := "CAST(date(qualified_at) AS TEXT)"
	var qualifiedRows []countRow
	if err := r.db.Model(&models.AffiliateRegistration{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total", qualifiedDayExpr)).
		Where("qualified_at IS NOT NULL AND qualified_at >= ? AND qualified_at < ?", startAt, endAt).
		Group(qualifiedDayExpr).
		Order("day asc").
		Scan(&qualifiedRows).Error; err != nil {
		return nil, err
	}

	clickMap := make(map[string]int64, len(clickRows))
	for _, item := range clickRows {
		clickMap[item.Day] = item.Total
	}
	registrationMap := make(map[string]int64, len(registrationRows))
	for _, item := range registrationRows {
		registrationMap[item.Day] = item.Total
	}
	qualifiedMap := make(map[string]int64, len(qualifiedRows))
	for _, item := range qualifiedRows {
		qualifiedMap[item.Day] = item.Total
	}

	seen := make(map[string]struct{}, len(clickRows)+len(registrationRows)+len(qualifiedRows))
	result := make([]DashboardAttributionTrendRow, 0)
	push := func(day string) {
		if day == "" {
			return
		}
		if _, ok := seen[day]; ok {
			return
		}
		seen[day] = struct{}{}
		result = append(result, DashboardAttributionTrendRow{
			Day:           day,
			Clicks:        clickMap[day],
			Registrations: registrationMap[day],
			Qualified:     qualifiedMap[day],
		})
	}
	for _, item := range clickRows {
		push(item.Day)
	}
	for _, item := range registrationRows {
		push(item.Day)
	}
	for _, item := range qualifiedRows {
		push(item.Day)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day < result[j].Day })
	return result, nil
}

// GetTopLinks 获取区间内注册数最多的推广链接
func (r *GormDashboardRepository) GetTopLinks(startAt, endAt time.Time, limit int) ([]DashboardLinkRankingRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []DashboardLinkRankingRow
	err := r.db.Table("affiliate_links AS al").
		Select(`al.id AS link_id, al.code AS code, al.affiliate_user_id AS affiliate_user_id,
			(SELECT COUNT(*) FROM affiliate_clicks ac WHERE ac.link_id = al.id AND ac.created_at >= ? AND ac.created_at < ?) AS clicks,
			COUNT(ar.id) AS registrations,
			COALESCE(SUM(CASE WHEN ar.status = ? THEN 1 ELSE 0 END), 0) AS qualified`,
			startAt, endAt, constants.RegistrationStatusQualified).
		Joins("JOIN affiliate_registrations ar ON ar.link_id = al.id AND ar.created_at >= ? AND ar.created_at < ?", startAt, endAt).
		Group("al.id, al.code, al.affiliate_user_id").
		Order("registrations desc, al.id asc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
