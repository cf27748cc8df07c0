package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广归因数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithContext(ctx context.Context) AffiliateRepository
	WithTx(tx *gorm.DB) AffiliateRepository

	CreateOffer(offer *models.AffiliateOffer) error
	GetOfferByID(id uint) (*models.AffiliateOffer, error)
	ListOffers(filter AffiliateOfferListFilter) ([]models.AffiliateOffer, int64, error)
	UpsertGeoRule(rule *models.AffiliateOfferGeoRule) error
	GetActiveGeoRule(offerID uint, country string) (*models.AffiliateOfferGeoRule, error)
	ListGeoRules(offerID uint) ([]models.AffiliateOfferGeoRule, error)

	CreateLink(link *models.AffiliateLink) error
	GetLinkByID(id uint) (*models.AffiliateLink, error)
	GetLinkByCode(code string) (*models.AffiliateLink, error)
	ListLinks(filter AffiliateLinkListFilter) ([]models.AffiliateLink, int64, error)
	SetLinkActive(id uint, active bool) (bool, error)
	IncrementLinkClicks(linkID uint) error
	IncrementLinkRegistrations(linkID uint) error

	InsertClickOnce(click *models.AffiliateClick) (bool, error)
	GetClickByClickID(clickID string) (*models.AffiliateClick, error)

	InsertRegistrationOnce(reg *models.AffiliateRegistration) (bool, error)
	GetRegistration(linkID, userID uint) (*models.AffiliateRegistration, error)
	GetRegistrationByID(id uint) (*models.AffiliateRegistration, error)
	GetRegistrationByIDForUpdate(id uint) (*models.AffiliateRegistration, error)
	TransitionRegistration(id uint, from constants.RegistrationStatus, updates map[string]interface{}) (bool, error)
	TransitionPayoutStatus(id uint, from, to constants.PayoutStatus) (bool, error)
	ResolvePayout(id uint, amount models.Money, currency string) (bool, error)
	ListRegistrations(filter AffiliateRegistrationListFilter) ([]models.AffiliateRegistration, int64, error)
	CountUnresolvedPayouts() (int64, error)
	SumPayouts(filter PayoutRollupFilter) ([]PayoutRollupRow, error)

	CreateEvent(event *models.AffiliateRegistrationEvent) error
	ListEvents(registrationID uint) ([]models.AffiliateRegistrationEvent, error)
}

// GormAffiliateRepository GORM 推广归因仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广归因仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return classifyWriteError(r.db.Transaction(fn))
}

// WithContext 绑定请求上下文
func (r *GormAffiliateRepository) WithContext(ctx context.Context) AffiliateRepository {
	if ctx == nil {
		return r
	}
	return &GormAffiliateRepository{db: r.db.WithContext(ctx)}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// CreateOffer 创建推广活动
func (r *GormAffiliateRepository) CreateOffer(offer *models.AffiliateOffer) error {
	return r.db.Create(offer).Error
}

// GetOfferByID 按ID获取推广活动
func (r *GormAffiliateRepository) GetOfferByID(id uint) (*models.AffiliateOffer, error) {
	if id == 0 {
		return nil, nil
	}
	var offer models.AffiliateOffer
	found, err := findOne(r.db, &offer, id)
	if err != nil || !found {
		return nil, err
	}
	return &offer, nil
}

// ListOffers 查询推广活动列表
func (r *GormAffiliateRepository) ListOffers(filter AffiliateOfferListFilter) ([]models.AffiliateOffer, int64, error) {
	query := r.db.Model(&models.AffiliateOffer{})
	if role := strings.TrimSpace(filter.TargetRole); role != "" {
		query = query.Where("target_role = ?", role)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		operator := likeOperatorByDialect(dbDialectName(r.db))
		query = query.Where(fmt.Sprintf("name %s ?", operator), "%"+keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.AffiliateOffer
	if err := query.Preload("GeoRules").Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpsertGeoRule 创建或覆盖 (offer, country) 地区规则
func (r *GormAffiliateRepository) UpsertGeoRule(rule *models.AffiliateOfferGeoRule) error {
	if rule == nil {
		return nil
	}
	rule.Country = strings.ToUpper(strings.TrimSpace(rule.Country))
	rule.UpdatedAt = time.Now()
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "offer_id"}, {Name: "country"}},
		DoUpdates: clause.AssignmentColumns([]string{"cpa_amount", "revshare_percent", "currency", "is_active", "updated_at"}),
	}).Create(rule).Error
	return classifyWriteError(err)
}

// GetActiveGeoRule 获取 (offer, country) 的启用规则
func (r *GormAffiliateRepository) GetActiveGeoRule(offerID uint, country string) (*models.AffiliateOfferGeoRule, error) {
	normalized := strings.ToUpper(strings.TrimSpace(country))
	if offerID == 0 || normalized == "" {
		return nil, nil
	}
	var rule models.AffiliateOfferGeoRule
	found, err := findOne(r.db.Where("offer_id = ? AND country = ? AND is_active = ?", offerID, normalized, true), &rule)
	if err != nil || !found {
		return nil, err
	}
	return &rule, nil
}

// ListGeoRules 查询活动的地区规则
func (r *GormAffiliateRepository) ListGeoRules(offerID uint) ([]models.AffiliateOfferGeoRule, error) {
	var rows []models.AffiliateOfferGeoRule
	if err := r.db.Where("offer_id = ?", offerID).Order("country asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateLink 创建推广链接
func (r *GormAffiliateRepository) CreateLink(link *models.AffiliateLink) error {
	return r.db.Create(link).Error
}

// GetLinkByID 按ID获取推广链接
func (r *GormAffiliateRepository) GetLinkByID(id uint) (*models.AffiliateLink, error) {
	if id == 0 {
		return nil, nil
	}
	var link models.AffiliateLink
	found, err := findOne(r.db.Preload("Offer"), &link, id)
	if err != nil || !found {
		return nil, err
	}
	return &link, nil
}

// GetLinkByCode 按推广码获取推广链接
func (r *GormAffiliateRepository) GetLinkByCode(code string) (*models.AffiliateLink, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var link models.AffiliateLink
	found, err := findOne(r.db.Preload("Offer").Where("code = ?", normalized), &link)
	if err != nil || !found {
		return nil, err
	}
	return &link, nil
}

// ListLinks 查询推广链接列表
func (r *GormAffiliateRepository) ListLinks(filter AffiliateLinkListFilter) ([]models.AffiliateLink, int64, error) {
	query := r.db.Model(&models.AffiliateLink{})
	if filter.AffiliateUserID != 0 {
		query = query.Where("affiliate_user_id = ?", filter.AffiliateUserID)
	}
	if filter.OfferID != 0 {
		query = query.Where("offer_id = ?", filter.OfferID)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		operator := likeOperatorByDialect(dbDialectName(r.db))
		query = query.Where(fmt.Sprintf("code %s ?", operator), "%"+strings.ToUpper(code)+"%")
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.AffiliateLink
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SetLinkActive 启用或停用推广链接（不做物理删除）
func (r *GormAffiliateRepository) SetLinkActive(id uint, active bool) (bool, error) {
	result := r.db.Model(&models.AffiliateLink{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// IncrementLinkClicks 点击数 +1
func (r *GormAffiliateRepository) IncrementLinkClicks(linkID uint) error {
	return r.incrementLinkCounter(linkID, "click_count")
}

// IncrementLinkRegistrations 注册数 +1
func (r *GormAffiliateRepository) IncrementLinkRegistrations(linkID uint) error {
	return r.incrementLinkCounter(linkID, "registration_count")
}

func (r *GormAffiliateRepository) incrementLinkCounter(linkID uint, column string) error {
	err := r.db.Model(&models.AffiliateLink{}).
		Where("id = ?", linkID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
	return classifyWriteError(err)
}

// InsertClickOnce 按 click_id 幂等写入点击
func (r *GormAffiliateRepository) InsertClickOnce(click *models.AffiliateClick) (bool, error) {
	if click == nil || strings.TrimSpace(click.ClickID) == "" {
		return false, nil
	}
	return insertOnce(r.db, click, "click_id")
}

// GetClickByClickID 按 click_id 获取点击
func (r *GormAffiliateRepository) GetClickByClickID(clickID string) (*models.AffiliateClick, error) {
	normalized := strings.TrimSpace(clickID)
	if normalized == "" {
		return nil, nil
	}
	var click models.AffiliateClick
	found, err := findOne(r.db.Where("click_id = ?", normalized), &click)
	if err != nil || !found {
		return nil, err
	}
	return &click, nil
}

// InsertRegistrationOnce 按 (link, user) 幂等写入注册
func (r *GormAffiliateRepository) InsertRegistrationOnce(reg *models.AffiliateRegistration) (bool, error) {
	if reg == nil || reg.LinkID == 0 || reg.UserID == 0 {
		return false, nil
	}
	return insertOnce(r.db, reg, "link_id", "user_id")
}

// GetRegistration 按 (link, user) 获取注册
func (r *GormAffiliateRepository) GetRegistration(linkID, userID uint) (*models.AffiliateRegistration, error) {
	if linkID == 0 || userID == 0 {
		return nil, nil
	}
	var reg models.AffiliateRegistration
	found, err := findOne(r.db.Where("link_id = ? AND user_id = ?", linkID, userID), &reg)
	if err != nil || !found {
		return nil, err
	}
	return &reg, nil
}

// GetRegistrationByID 按ID获取注册（含链接与活动）
func (r *GormAffiliateRepository) GetRegistrationByID(id uint) (*models.AffiliateRegistration, error) {
	return r.getRegistrationByID(r.db, id)
}

// GetRegistrationByIDForUpdate 按ID获取注册并加行锁
func (r *GormAffiliateRepository) GetRegistrationByIDForUpdate(id uint) (*models.AffiliateRegistration, error) {
	return r.getRegistrationByID(lockForUpdate(r.db), id)
}

func (r *GormAffiliateRepository) getRegistrationByID(db *gorm.DB, id uint) (*models.AffiliateRegistration, error) {
	if id == 0 {
		return nil, nil
	}
	var reg models.AffiliateRegistration
	found, err := findOne(db.Preload("Link").Preload("Link.Offer"), &reg, id)
	if err != nil || !found {
		return nil, err
	}
	return &reg, nil
}

// TransitionRegistration 条件更新注册状态，仅当当前状态为 from 时生效
func (r *GormAffiliateRepository) TransitionRegistration(id uint, from constants.RegistrationStatus, updates map[string]interface{}) (bool, error) {
	if id == 0 || len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := r.db.Model(&models.AffiliateRegistration{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// TransitionPayoutStatus 条件推进结算状态
func (r *GormAffiliateRepository) TransitionPayoutStatus(id uint, from, to constants.PayoutStatus) (bool, error) {
	result := r.db.Model(&models.AffiliateRegistration{}).
		Where("id = ? AND status = ? AND payout_status = ? AND payout_unresolved = ?",
			id, constants.RegistrationStatusQualified, from, false).
		Updates(map[string]interface{}{
			"payout_status": to,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ResolvePayout 人工补录待处理佣金金额
func (r *GormAffiliateRepository) ResolvePayout(id uint, amount models.Money, currency string) (bool, error) {
	result := r.db.Model(&models.AffiliateRegistration{}).
		Where("id = ? AND status = ? AND payout_unresolved = ?", id, constants.RegistrationStatusQualified, true).
		Updates(map[string]interface{}{
			"payout_amount":     amount,
			"payout_currency":   strings.ToUpper(strings.TrimSpace(currency)),
			"payout_unresolved": false,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListRegistrations 查询推广注册列表
func (r *GormAffiliateRepository) ListRegistrations(filter AffiliateRegistrationListFilter) ([]models.AffiliateRegistration, int64, error) {
	query := r.db.Model(&models.AffiliateRegistration{})
	if filter.LinkID != 0 {
		query = query.Where("affiliate_registrations.link_id = ?", filter.LinkID)
	}
	if filter.AffiliateUserID != 0 {
		query = query.
			Joins("JOIN affiliate_links al ON al.id = affiliate_registrations.link_id").
			Where("al.affiliate_user_id = ?", filter.AffiliateUserID)
	}
	if filter.UserID != 0 {
		query = query.Where("affiliate_registrations.user_id = ?", filter.UserID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("affiliate_registrations.status = ?", status)
	}
	if status := strings.TrimSpace(filter.PayoutStatus); status != "" {
		query = query.Where("affiliate_registrations.payout_status = ?", status)
	}
	if filter.PayoutUnresolved != nil {
		query = query.Where("affiliate_registrations.payout_unresolved = ?", *filter.PayoutUnresolved)
	}
	if country := strings.ToUpper(strings.TrimSpace(filter.Country)); country != "" {
		query = query.Where("affiliate_registrations.country = ?", country)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("affiliate_registrations.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("affiliate_registrations.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.AffiliateRegistration
	if err := query.Order("affiliate_registrations.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountUnresolvedPayouts 统计待人工补录佣金的注册数
func (r *GormAffiliateRepository) CountUnresolvedPayouts() (int64, error) {
	var total int64
	err := r.db.Model(&models.AffiliateRegistration{}).
		Where("status = ? AND payout_unresolved = ?", constants.RegistrationStatusQualified, true).
		Count(&total).Error
	return total, err
}

// SumPayouts 按币种与结算状态汇总已达标佣金
func (r *GormAffiliateRepository) SumPayouts(filter PayoutRollupFilter) ([]PayoutRollupRow, error) {
	query := r.db.Model(&models.AffiliateRegistration{}).
		Select("affiliate_registrations.payout_currency AS currency, affiliate_registrations.payout_status AS payout_status, COUNT(*) AS count, COALESCE(SUM(affiliate_registrations.payout_amount), 0) AS total_amount").
		Where("affiliate_registrations.status = ? AND affiliate_registrations.payout_amount IS NOT NULL", constants.RegistrationStatusQualified)
	if filter.AffiliateUserID != 0 || filter.OfferID != 0 {
		query = query.Joins("JOIN affiliate_links al ON al.id = affiliate_registrations.link_id")
		if filter.AffiliateUserID != 0 {
			query = query.Where("al.affiliate_user_id = ?", filter.AffiliateUserID)
		}
		if filter.OfferID != 0 {
			query = query.Where("al.offer_id = ?", filter.OfferID)
		}
	}
	if filter.QualifiedFrom != nil {
		query = query.Where("affiliate_registrations.qualified_at >= ?", *filter.QualifiedFrom)
	}
	if filter.QualifiedTo != nil {
		query = query.Where("affiliate_registrations.qualified_at <= ?", *filter.QualifiedTo)
	}

	var rows []PayoutRollupRow
	err := query.
		Group("affiliate_registrations.payout_currency, affiliate_registrations.payout_status").
		Order("currency asc, payout_status asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateEvent 写入注册审计事件
func (r *GormAffiliateRepository) CreateEvent(event *models.AffiliateRegistrationEvent) error {
	if event == nil {
		return nil
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return classifyWriteError(r.db.Create(event).Error)
}

// ListEvents 查询注册审计事件
func (r *GormAffiliateRepository) ListEvents(registrationID uint) ([]models.AffiliateRegistrationEvent, error) {
	var rows []models.AffiliateRegistrationEvent
	if err := r.db.Where("registration_id = ?", registrationID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
