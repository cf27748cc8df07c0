package repository

import (
	"context"
	"time"

	"github.com/jobguard/internal/models"

	"gorm.io/gorm"
)

// QuotaRepository 职位投递配额数据访问接口
type QuotaRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithContext(ctx context.Context) QuotaRepository
	WithTx(tx *gorm.DB) QuotaRepository

	EnsureJobPostQuota(jobPostID uint, allowedPerDay, cumulativeLimit int64) (*models.JobPostQuota, error)
	GetJobPostQuota(jobPostID uint) (*models.JobPostQuota, error)
	EnsureDayQuota(jobPostID uint, dayBucket string, allowedPerDay int64) (*models.ApplicationQuota, error)
	GetDayQuota(jobPostID uint, dayBucket string) (*models.ApplicationQuota, error)

	IncrementDayUsage(jobPostID uint, dayBucket string) (bool, error)
	IncrementCumulativeUsage(jobPostID uint) (bool, error)
	DecrementDayUsage(jobPostID uint, dayBucket string) (bool, error)
	DecrementCumulativeUsage(jobPostID uint) (bool, error)

	UpdateCaps(jobPostID uint, allowedPerDay, cumulativeLimit int64, fromDayBucket string) error
	ListDayQuotas(jobPostID uint, fromDayBucket, toDayBucket string) ([]models.ApplicationQuota, error)
}

// GormQuotaRepository GORM 投递配额仓储
type GormQuotaRepository struct {
	db *gorm.DB
}

// NewQuotaRepository 创建投递配额仓储
func NewQuotaRepository(db *gorm.DB) *GormQuotaRepository {
	return &GormQuotaRepository{db: db}
}

// Transaction 执行事务
func (r *GormQuotaRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return classifyWriteError(r.db.Transaction(fn))
}

// WithContext 绑定请求上下文
func (r *GormQuotaRepository) WithContext(ctx context.Context) QuotaRepository {
	if ctx == nil {
		return r
	}
	return &GormQuotaRepository{db: r.db.WithContext(ctx)}
}

// WithTx 绑定事务
func (r *GormQuotaRepository) WithTx(tx *gorm.DB) QuotaRepository {
	if tx == nil {
		return r
	}
	return &GormQuotaRepository{db: tx}
}

// EnsureJobPostQuota 惰性创建职位配额聚合（已存在则直接返回）
func (r *GormQuotaRepository) EnsureJobPostQuota(jobPostID uint, allowedPerDay, cumulativeLimit int64) (*models.JobPostQuota, error) {
	if jobPostID == 0 {
		return nil, nil
	}
	row := &models.JobPostQuota{
		JobPostID:       jobPostID,
		AllowedPerDay:   nonNegative(allowedPerDay),
		CumulativeLimit: nonNegative(cumulativeLimit),
	}
	if _, err := insertOnce(r.db, row, "job_post_id"); err != nil {
		return nil, err
	}
	return r.GetJobPostQuota(jobPostID)
}

// GetJobPostQuota 获取职位配额聚合
func (r *GormQuotaRepository) GetJobPostQuota(jobPostID uint) (*models.JobPostQuota, error) {
	if jobPostID == 0 {
		return nil, nil
	}
	var row models.JobPostQuota
	found, err := findOne(r.db.Where("job_post_id = ?", jobPostID), &row)
	if err != nil || !found {
		return nil, err
	}
	return &row, nil
}

// EnsureDayQuota 惰性创建当日额度行，上限取自聚合快照
func (r *GormQuotaRepository) EnsureDayQuota(jobPostID uint, dayBucket string, allowedPerDay int64) (*models.ApplicationQuota, error) {
	if jobPostID == 0 || dayBucket == "" {
		return nil, nil
	}
	row := &models.ApplicationQuota{
		JobPostID:     jobPostID,
		DayBucket:     dayBucket,
		AllowedPerDay: nonNegative(allowedPerDay),
	}
	if _, err := insertOnce(r.db, row, "job_post_id", "day_bucket"); err != nil {
		return nil, err
	}
	return r.GetDayQuota(jobPostID, dayBucket)
}

// GetDayQuota 获取当日额度行
func (r *GormQuotaRepository) GetDayQuota(jobPostID uint, dayBucket string) (*models.ApplicationQuota, error) {
	if jobPostID == 0 || dayBucket == "" {
		return nil, nil
	}
	var row models.ApplicationQuota
	found, err := findOne(r.db.Where("job_post_id = ? AND day_bucket = ?", jobPostID, dayBucket), &row)
	if err != nil || !found {
		return nil, err
	}
	return &row, nil
}

// IncrementDayUsage 条件递增当日用量，达到上限时返回 false
func (r *GormQuotaRepository) IncrementDayUsage(jobPostID uint, dayBucket string) (bool, error) {
	result := r.db.Model(&models.ApplicationQuota{}).
		Where("job_post_id = ? AND day_bucket = ? AND used_per_day < allowed_per_day", jobPostID, dayBucket).
		Updates(map[string]interface{}{
			"used_per_day": gorm.Expr("used_per_day + ?", 1),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// IncrementCumulativeUsage 条件递增累计用量，达到上限时返回 false
func (r *GormQuotaRepository) IncrementCumulativeUsage(jobPostID uint) (bool, error) {
	result := r.db.Model(&models.JobPostQuota{}).
		Where("job_post_id = ? AND cumulative_used < cumulative_limit", jobPostID).
		Updates(map[string]interface{}{
			"cumulative_used": gorm.Expr("cumulative_used + ?", 1),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DecrementDayUsage 回退当日用量（不低于 0）
func (r *GormQuotaRepository) DecrementDayUsage(jobPostID uint, dayBucket string) (bool, error) {
	result := r.db.Model(&models.ApplicationQuota{}).
		Where("job_post_id = ? AND day_bucket = ? AND used_per_day > 0", jobPostID, dayBucket).
		Updates(map[string]interface{}{
			"used_per_day": gorm.Expr("used_per_day - ?", 1),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DecrementCumulativeUsage 回退累计用量（不低于 0）
func (r *GormQuotaRepository) DecrementCumulativeUsage(jobPostID uint) (bool, error) {
	result := r.db.Model(&models.JobPostQuota{}).
		Where("job_post_id = ? AND cumulative_used > 0", jobPostID).
		Updates(map[string]interface{}{
			"cumulative_used": gorm.Expr("cumulative_used - ?", 1),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateCaps 更新职位上限，并同步到指定日期及之后已创建的日额度行
func (r *GormQuotaRepository) UpdateCaps(jobPostID uint, allowedPerDay, cumulativeLimit int64, fromDayBucket string) error {
	now := time.Now()
	if err := r.db.Model(&models.JobPostQuota{}).
		Where("job_post_id = ?", jobPostID).
		Updates(map[string]interface{}{
			"allowed_per_day":  nonNegative(allowedPerDay),
			"cumulative_limit": nonNegative(cumulativeLimit),
			"updated_at":       now,
		}).Error; err != nil {
		return classifyWriteError(err)
	}
	if fromDayBucket == "" {
		return nil
	}
	err := r.db.Model(&models.ApplicationQuota{}).
		Where("job_post_id = ? AND day_bucket >= ?", jobPostID, fromDayBucket).
		Updates(map[string]interface{}{
			"allowed_per_day": nonNegative(allowedPerDay),
			"updated_at":      now,
		}).Error
	return classifyWriteError(err)
}

// ListDayQuotas 查询日期区间内的日额度行
func (r *GormQuotaRepository) ListDayQuotas(jobPostID uint, fromDayBucket, toDayBucket string) ([]models.ApplicationQuota, error) {
	query := r.db.Model(&models.ApplicationQuota{}).Where("job_post_id = ?", jobPostID)
	if fromDayBucket != "" {
		query = query.Where("day_bucket >= ?", fromDayBucket)
	}
	if toDayBucket != "" {
		query = query.Where("day_bucket <= ?", toDayBucket)
	}
	var rows []models.ApplicationQuota
	if err := query.Order("day_bucket asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
