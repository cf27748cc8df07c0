package service

import (
	"context"
	"errors"
	"time"

	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/metrics"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultQuotaMaxRetries   = 3
	defaultQuotaRetryBackoff = 20 * time.Millisecond
)

// errCumulativeCapRollback 累计额度已满时用于回滚当日用量
var errCumulativeCapRollback = errors.New("cumulative cap reached")

// RiskChecker 高风险判定
type RiskChecker interface {
	IsHighRisk(ctx context.Context, userID uint) (bool, int, error)
}

// QuotaService 职位投递配额服务
type QuotaService struct {
	repo         repository.QuotaRepository
	risk         RiskChecker
	bucketer     *DayBucketer
	metrics      metrics.Recorder
	defaultDaily int64
	defaultTotal int64
	maxRetries   int
	retryBackoff time.Duration
	nowFn        func() time.Time
}

// NewQuotaService 创建投递配额服务
func NewQuotaService(
	repo repository.QuotaRepository,
	risk RiskChecker,
	recorder metrics.Recorder,
	cfg config.QuotaConfig,
) (*QuotaService, error) {
	bucketer, err := NewDayBucketer(cfg.Timezone, cfg.BucketDays)
	if err != nil {
		return nil, err
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultQuotaMaxRetries
	}
	backoff := time.Duration(cfg.RetryBackoffMS) * time.Millisecond
	if backoff <= 0 {
		backoff = defaultQuotaRetryBackoff
	}
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &QuotaService{
		repo:         repo,
		risk:         risk,
		bucketer:     bucketer,
		metrics:      recorder,
		defaultDaily: cfg.DefaultAllowedPerDay,
		defaultTotal: cfg.DefaultCumulativeLimit,
		maxRetries:   maxRetries,
		retryBackoff: backoff,
		nowFn:        time.Now,
	}, nil
}

// AdmissionResult 投递准入结果
type AdmissionResult struct {
	Outcome         constants.AdmissionOutcome `json:"outcome"`
	DenyReason      constants.DenyReason       `json:"deny_reason,omitempty"`
	JobPostID       uint                       `json:"job_post_id"`
	DayBucket       string                     `json:"day_bucket"`
	UsedPerDay      int64                      `json:"used_per_day"`
	AllowedPerDay   int64                      `json:"allowed_per_day"`
	CumulativeUsed  int64                      `json:"cumulative_used"`
	CumulativeLimit int64                      `json:"cumulative_limit"`
	RiskScore       int                        `json:"-"`
}

// Admitted 是否准入
func (r AdmissionResult) Admitted() bool {
	return r.Outcome == constants.AdmissionAdmitted
}

// QuotaUsage 配额用量快照
type QuotaUsage struct {
	JobPostID       uint   `json:"job_post_id"`
	DayBucket       string `json:"day_bucket"`
	AllowedPerDay   int64  `json:"allowed_per_day"`
	UsedPerDay      int64  `json:"used_per_day"`
	CumulativeLimit int64  `json:"cumulative_limit"`
	CumulativeUsed  int64  `json:"cumulative_used"`
	Configured      bool   `json:"configured"`
}

// DayBucket 返回时间点所属日期桶
func (s *QuotaService) DayBucket(at time.Time) string {
	if at.IsZero() {
		at = s.nowFn()
	}
	return s.bucketer.Bucket(at)
}

// TryAdmit 原子地占用当日与累计额度各 1 个
func (s *QuotaService) TryAdmit(ctx context.Context, jobPostID, userID uint, at time.Time) (AdmissionResult, error) {
	bucket := s.DayBucket(at)
	result := AdmissionResult{JobPostID: jobPostID, DayBucket: bucket}
	if jobPostID == 0 {
		return result, ErrInvalidInput
	}

	if s.risk != nil && userID != 0 {
		high, score, err := s.risk.IsHighRisk(ctx, userID)
		if err != nil {
			return result, err
		}
		result.RiskScore = score
		if high {
			result.Outcome = constants.AdmissionDenied
			result.DenyReason = constants.DenyReasonFraudRisk
			s.metrics.IncAdmission(string(result.Outcome))
			logger.C(ctx).Infow("quota_admission_denied",
				"job_post_id", jobPostID,
				"user_id", userID,
				"risk_score", score,
			)
			return result, nil
		}
	}

	err := s.withContentionRetry(ctx, "quota_admit", func() error {
		attempt := result
		txErr := s.repo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			aggregate, err := repo.EnsureJobPostQuota(jobPostID, s.defaultDaily, s.defaultTotal)
			if err != nil {
				return err
			}
			day, err := repo.EnsureDayQuota(jobPostID, bucket, aggregate.AllowedPerDay)
			if err != nil {
				return err
			}
			fillAdmissionSnapshot(&attempt, aggregate, day)

			ok, err := repo.IncrementDayUsage(jobPostID, bucket)
			if err != nil {
				return err
			}
			if !ok {
				attempt.Outcome = constants.AdmissionDailyCapReached
				return nil
			}
			ok, err = repo.IncrementCumulativeUsage(jobPostID)
			if err != nil {
				return err
			}
			if !ok {
				attempt.Outcome = constants.AdmissionCumulativeCapReached
				return errCumulativeCapRollback
			}

			if day, err = repo.GetDayQuota(jobPostID, bucket); err != nil {
				return err
			}
			if aggregate, err = repo.GetJobPostQuota(jobPostID); err != nil {
				return err
			}
			fillAdmissionSnapshot(&attempt, aggregate, day)
			attempt.Outcome = constants.AdmissionAdmitted
			return nil
		})
		if txErr != nil && !errors.Is(txErr, errCumulativeCapRollback) {
			return txErr
		}
		result = attempt
		return nil
	})
	if err != nil {
		return result, err
	}

	s.metrics.IncAdmission(string(result.Outcome))
	if !result.Admitted() {
		logger.C(ctx).Debugw("quota_admission_rejected",
			"job_post_id", jobPostID,
			"user_id", userID,
			"day_bucket", bucket,
			"outcome", result.Outcome,
		)
	}
	return result, nil
}

func fillAdmissionSnapshot(result *AdmissionResult, aggregate *models.JobPostQuota, day *models.ApplicationQuota) {
	if aggregate != nil {
		result.CumulativeUsed = aggregate.CumulativeUsed
		result.CumulativeLimit = aggregate.CumulativeLimit
	}
	if day != nil {
		result.UsedPerDay = day.UsedPerDay
		result.AllowedPerDay = day.AllowedPerDay
	}
}

// Release 补偿回退一次准入占用的额度（不低于 0），当日无占用时不动累计额度
func (s *QuotaService) Release(ctx context.Context, jobPostID, userID uint, at time.Time) (bool, error) {
	if jobPostID == 0 {
		return false, ErrInvalidInput
	}
	bucket := s.DayBucket(at)
	released := false
	err := s.withContentionRetry(ctx, "quota_release", func() error {
		return s.repo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			dayOK, err := repo.DecrementDayUsage(jobPostID, bucket)
			if err != nil || !dayOK {
				return err
			}
			// 日额度确有占用时才回退累计额度，两者保持同步
			totalOK, err := repo.DecrementCumulativeUsage(jobPostID)
			if err != nil {
				return err
			}
			released = totalOK
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	s.metrics.IncRelease(released)
	logger.C(ctx).Infow("quota_released",
		"job_post_id", jobPostID,
		"user_id", userID,
		"day_bucket", bucket,
		"released", released,
	)
	return released, nil
}

// SetCaps 配置职位上限并同步到当前及之后的日额度行，0 表示关闭投递
func (s *QuotaService) SetCaps(ctx context.Context, jobPostID uint, allowedPerDay, cumulativeLimit int64) (QuotaUsage, error) {
	if jobPostID == 0 || allowedPerDay < 0 || cumulativeLimit < 0 {
		return QuotaUsage{}, ErrInvalidInput
	}
	bucket := s.DayBucket(time.Time{})
	err := s.withContentionRetry(ctx, "quota_set_caps", func() error {
		return s.repo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if _, err := repo.EnsureJobPostQuota(jobPostID, allowedPerDay, cumulativeLimit); err != nil {
				return err
			}
			return repo.UpdateCaps(jobPostID, allowedPerDay, cumulativeLimit, bucket)
		})
	})
	if err != nil {
		return QuotaUsage{}, err
	}
	logger.C(ctx).Infow("quota_caps_updated",
		"job_post_id", jobPostID,
		"allowed_per_day", allowedPerDay,
		"cumulative_limit", cumulativeLimit,
		"from_day_bucket", bucket,
	)
	return s.GetUsage(ctx, jobPostID, time.Time{})
}

// GetUsage 只读查询配额用量，不会创建任何记录
func (s *QuotaService) GetUsage(ctx context.Context, jobPostID uint, at time.Time) (QuotaUsage, error) {
	bucket := s.DayBucket(at)
	usage := QuotaUsage{
		JobPostID:       jobPostID,
		DayBucket:       bucket,
		AllowedPerDay:   s.defaultDaily,
		CumulativeLimit: s.defaultTotal,
	}
	if jobPostID == 0 {
		return usage, ErrInvalidInput
	}
	repo := s.repo.WithContext(ctx)
	aggregate, err := repo.GetJobPostQuota(jobPostID)
	if err != nil {
		return usage, wrapStorageError("get job post quota", err)
	}
	if aggregate != nil {
		usage.Configured = true
		usage.AllowedPerDay = aggregate.AllowedPerDay
		usage.CumulativeLimit = aggregate.CumulativeLimit
		usage.CumulativeUsed = aggregate.CumulativeUsed
	}
	day, err := repo.GetDayQuota(jobPostID, bucket)
	if err != nil {
		return usage, wrapStorageError("get day quota", err)
	}
	if day != nil {
		usage.AllowedPerDay = day.AllowedPerDay
		usage.UsedPerDay = day.UsedPerDay
	}
	return usage, nil
}

// ListDailyUsage 查询日期区间内的日额度行
func (s *QuotaService) ListDailyUsage(ctx context.Context, jobPostID uint, from, to time.Time) ([]models.ApplicationQuota, error) {
	if jobPostID == 0 {
		return nil, ErrInvalidInput
	}
	fromBucket, toBucket := "", ""
	if !from.IsZero() {
		fromBucket = s.DayBucket(from)
	}
	if !to.IsZero() {
		toBucket = s.DayBucket(to)
	}
	rows, err := s.repo.WithContext(ctx).ListDayQuotas(jobPostID, fromBucket, toBucket)
	if err != nil {
		return nil, wrapStorageError("list day quotas", err)
	}
	return rows, nil
}

// withContentionRetry 锁冲突时有限重试，超出次数返回 ErrStorageContention
func (s *QuotaService) withContentionRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.IncStorageRetry(operation)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryBackoff * time.Duration(attempt)):
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !repository.IsContention(err) {
			return wrapStorageError(operation, err)
		}
		lastErr = err
		logger.C(ctx).Debugw("storage_contention_retry", "operation", operation, "attempt", attempt+1, "error", err)
	}
	return wrapStorageError(operation, errors.Join(ErrStorageContention, lastErr))
}
