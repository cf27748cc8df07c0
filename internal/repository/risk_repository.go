package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jobguard/internal/models"

	"gorm.io/gorm"
)

// RiskRepository 设备指纹观测数据访问接口
type RiskRepository interface {
	WithContext(ctx context.Context) RiskRepository
	WithTx(tx *gorm.DB) RiskRepository

	UpsertObservation(obs *models.FingerprintObservation) (bool, error)
	ListObservationsByUser(userID uint) ([]models.FingerprintObservation, error)
	ListObservations(filter RiskObservationListFilter) ([]models.FingerprintObservation, int64, error)
}

// GormRiskRepository GORM 设备指纹仓储
type GormRiskRepository struct {
	db *gorm.DB
}

// NewRiskRepository 创建设备指纹仓储
func NewRiskRepository(db *gorm.DB) *GormRiskRepository {
	return &GormRiskRepository{db: db}
}

// WithContext 绑定请求上下文
func (r *GormRiskRepository) WithContext(ctx context.Context) RiskRepository {
	if ctx == nil {
		return r
	}
	return &GormRiskRepository{db: r.db.WithContext(ctx)}
}

// WithTx 绑定事务
func (r *GormRiskRepository) WithTx(tx *gorm.DB) RiskRepository {
	if tx == nil {
		return r
	}
	return &GormRiskRepository{db: tx}
}

// UpsertObservation 按 (user, fingerprint, ip) 插入或累加观测次数，返回是否新建。
// 代理、机房标记只会由 false 变为 true。
func (r *GormRiskRepository) UpsertObservation(obs *models.FingerprintObservation) (bool, error) {
	if obs == nil || obs.UserID == 0 {
		return false, nil
	}
	obs.FingerprintHash = strings.TrimSpace(obs.FingerprintHash)
	obs.IP = strings.TrimSpace(obs.IP)
	seenAt := obs.LastSeenAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}
	obs.LastSeenAt = seenAt
	if obs.FirstSeenAt.IsZero() {
		obs.FirstSeenAt = seenAt
	}
	obs.SeenCount = 1

	created, err := insertOnce(r.db, obs, "user_id", "fingerprint_hash", "ip")
	if err != nil {
		return false, err
	}
	if created {
		return true, nil
	}

	updates := map[string]interface{}{
		"seen_count":   gorm.Expr("seen_count + ?", 1),
		"last_seen_at": seenAt,
	}
	if obs.IsProxy {
		updates["is_proxy"] = true
	}
	if obs.IsHosting {
		updates["is_hosting"] = true
	}
	result := r.db.Model(&models.FingerprintObservation{}).
		Where("user_id = ? AND fingerprint_hash = ? AND ip = ?", obs.UserID, obs.FingerprintHash, obs.IP).
		Updates(updates)
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return false, nil
}

// ListObservationsByUser 获取用户全部观测记录
func (r *GormRiskRepository) ListObservationsByUser(userID uint) ([]models.FingerprintObservation, error) {
	if userID == 0 {
		return []models.FingerprintObservation{}, nil
	}
	var rows []models.FingerprintObservation
	if err := r.db.Where("user_id = ?", userID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListObservations 后台分页查询观测记录
func (r *GormRiskRepository) ListObservations(filter RiskObservationListFilter) ([]models.FingerprintObservation, int64, error) {
	query := r.db.Model(&models.FingerprintObservation{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if hash := strings.TrimSpace(filter.FingerprintHash); hash != "" {
		query = query.Where("fingerprint_hash = ?", hash)
	}
	if ip := strings.TrimSpace(filter.IP); ip != "" {
		query = query.Where("ip = ?", ip)
	}
	if filter.SeenFrom != nil {
		query = query.Where("last_seen_at >= ?", *filter.SeenFrom)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.FingerprintObservation
	if err := query.Order("last_seen_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
