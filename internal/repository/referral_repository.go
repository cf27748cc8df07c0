package repository

import (
	"context"
	"strings"

	"github.com/jobguard/internal/models"

	"gorm.io/gorm"
)

// ReferralRepository 职位推荐计数数据访问接口
type ReferralRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithContext(ctx context.Context) ReferralRepository
	WithTx(tx *gorm.DB) ReferralRepository

	CreateLink(link *models.ReferralLink) error
	GetLinkByID(id uint) (*models.ReferralLink, error)
	GetLinkByCode(code string) (*models.ReferralLink, error)
	ListLinks(filter ReferralLinkListFilter) ([]models.ReferralLink, int64, error)
	IncrementClicks(linkID uint) error
	IncrementRegistrations(linkID uint) error

	InsertClickOnce(click *models.ReferralClick) (bool, error)
	GetClickByClickID(clickID string) (*models.ReferralClick, error)
	InsertRegistrationOnce(reg *models.ReferralRegistration) (bool, error)
	GetRegistration(linkID, userID uint) (*models.ReferralRegistration, error)
}

// GormReferralRepository GORM 推荐仓储
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return classifyWriteError(r.db.Transaction(fn))
}

// WithContext 绑定请求上下文
func (r *GormReferralRepository) WithContext(ctx context.Context) ReferralRepository {
	if ctx == nil {
		return r
	}
	return &GormReferralRepository{db: r.db.WithContext(ctx)}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// CreateLink 创建推荐链接
func (r *GormReferralRepository) CreateLink(link *models.ReferralLink) error {
	return r.db.Create(link).Error
}

// GetLinkByID 按ID获取推荐链接
func (r *GormReferralRepository) GetLinkByID(id uint) (*models.ReferralLink, error) {
	if id == 0 {
		return nil, nil
	}
	var link models.ReferralLink
	found, err := findOne(r.db, &link, id)
	if err != nil || !found {
		return nil, err
	}
	return &link, nil
}

// GetLinkByCode 按推荐码获取推荐链接
func (r *GormReferralRepository) GetLinkByCode(code string) (*models.ReferralLink, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var link models.ReferralLink
	found, err := findOne(r.db.Where("code = ?", normalized), &link)
	if err != nil || !found {
		return nil, err
	}
	return &link, nil
}

// ListLinks 查询推荐链接
func (r *GormReferralRepository) ListLinks(filter ReferralLinkListFilter) ([]models.ReferralLink, int64, error) {
	query := r.db.Model(&models.ReferralLink{})
	if filter.ReferrerUserID != 0 {
		query = query.Where("referrer_user_id = ?", filter.ReferrerUserID)
	}
	if filter.JobPostID != 0 {
		query = query.Where("job_post_id = ?", filter.JobPostID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.ReferralLink
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// IncrementClicks 点击数 +1
func (r *GormReferralRepository) IncrementClicks(linkID uint) error {
	err := r.db.Model(&models.ReferralLink{}).
		Where("id = ?", linkID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1)).Error
	return classifyWriteError(err)
}

// IncrementRegistrations 注册数 +1
func (r *GormReferralRepository) IncrementRegistrations(linkID uint) error {
	err := r.db.Model(&models.ReferralLink{}).
		Where("id = ?", linkID).
		UpdateColumn("registration_count", gorm.Expr("registration_count + ?", 1)).Error
	return classifyWriteError(err)
}

// InsertClickOnce 按 click_id 幂等写入点击
func (r *GormReferralRepository) InsertClickOnce(click *models.ReferralClick) (bool, error) {
	if click == nil || strings.TrimSpace(click.ClickID) == "" {
		return false, nil
	}
	return insertOnce(r.db, click, "click_id")
}

// GetClickByClickID 按 click_id 获取点击
func (r *GormReferralRepository) GetClickByClickID(clickID string) (*models.ReferralClick, error) {
	normalized := strings.TrimSpace(clickID)
	if normalized == "" {
		return nil, nil
	}
	var click models.ReferralClick
	found, err := findOne(r.db.Where("click_id = ?", normalized), &click)
	if err != nil || !found {
		return nil, err
	}
	return &click, nil
}

// InsertRegistrationOnce 按 (link, user) 幂等写入注册
func (r *GormReferralRepository) InsertRegistrationOnce(reg *models.ReferralRegistration) (bool, error) {
	if reg == nil || reg.LinkID == 0 || reg.UserID == 0 {
		return false, nil
	}
	return insertOnce(r.db, reg, "link_id", "user_id")
}

// GetRegistration 按 (link, user) 获取注册
func (r *GormReferralRepository) GetRegistration(linkID, userID uint) (*models.ReferralRegistration, error) {
	var reg models.ReferralRegistration
	found, err := findOne(r.db.Where("link_id = ? AND user_id = ?", linkID, userID), &reg)
	if err != nil || !found {
		return nil, err
	}
	return &reg, nil
}
