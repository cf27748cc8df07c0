package service

import (
	"context"
	"strings"
	"time"

	"github.com/jobguard/internal/cache"
	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/metrics"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/queue"
	"github.com/jobguard/internal/repository"
)

const defaultHighRiskThreshold = 70

// RiskService 设备指纹风险信号服务
type RiskService struct {
	repo        repository.RiskRepository
	scoreCache  *cache.RiskScoreCache
	classifier  IPClassifier
	queueClient *queue.Client
	metrics     metrics.Recorder
	rules       RiskRules
	threshold   int
	async       bool
	nowFn       func() time.Time
}

// NewRiskService 创建风险信号服务
func NewRiskService(
	repo repository.RiskRepository,
	scoreCache *cache.RiskScoreCache,
	classifier IPClassifier,
	queueClient *queue.Client,
	recorder metrics.Recorder,
	cfg config.RiskConfig,
) *RiskService {
	threshold := cfg.HighRiskThreshold
	if threshold <= 0 {
		threshold = defaultHighRiskThreshold
	}
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &RiskService{
		repo:        repo,
		scoreCache:  scoreCache,
		classifier:  classifier,
		queueClient: queueClient,
		metrics:     recorder,
		rules:       RiskRulesFromConfig(cfg),
		threshold:   threshold,
		async:       cfg.AsyncObservations,
		nowFn:       time.Now,
	}
}

// RiskObservationInput 设备指纹观测输入
type RiskObservationInput struct {
	UserID          uint
	FingerprintHash string
	IP              string
	IsProxy         bool
	IsHosting       bool
	ObservedAt      time.Time
}

// Threshold 高风险阈值
func (s *RiskService) Threshold() int {
	return s.threshold
}

// Record 写入一次观测，并清除该用户的评分缓存
func (s *RiskService) Record(ctx context.Context, input RiskObservationInput) error {
	fingerprint := strings.TrimSpace(input.FingerprintHash)
	ip := strings.TrimSpace(input.IP)
	if input.UserID == 0 || fingerprint == "" || ip == "" {
		return ErrInvalidInput
	}
	observedAt := input.ObservedAt
	if observedAt.IsZero() {
		observedAt = s.nowFn()
	}
	created, err := s.repo.WithContext(ctx).UpsertObservation(&models.FingerprintObservation{
		UserID:          input.UserID,
		FingerprintHash: fingerprint,
		IP:              ip,
		IsProxy:         input.IsProxy,
		IsHosting:       input.IsHosting,
		LastSeenAt:      observedAt,
	})
	if err != nil {
		return wrapStorageError("record observation", err)
	}
	if err := s.scoreCache.Invalidate(ctx, input.UserID); err != nil {
		logger.C(ctx).Warnw("risk_score_cache_invalidate_failed", "user_id", input.UserID, "error", err)
	}
	logger.C(ctx).Debugw("risk_observation_recorded",
		"user_id", input.UserID,
		"created", created,
		"is_proxy", input.IsProxy,
		"is_hosting", input.IsHosting,
	)
	return nil
}

// RecordRequest 对请求 IP 做情报分类后写入观测，开启异步时投递队列
func (s *RiskService) RecordRequest(ctx context.Context, userID uint, fingerprintHash, ip string) error {
	input := RiskObservationInput{
		UserID:          userID,
		FingerprintHash: fingerprintHash,
		IP:              ip,
		ObservedAt:      s.nowFn(),
	}
	if s.classifier != nil {
		class := s.classifier.Classify(ip)
		input.IsProxy = class.IsProxy
		input.IsHosting = class.IsHosting
	}
	if s.async && s.queueClient.Enabled() && userID != 0 {
		err := s.queueClient.EnqueueRiskObservation(queue.RiskObservationPayload{
			UserID:          input.UserID,
			FingerprintHash: strings.TrimSpace(input.FingerprintHash),
			IP:              strings.TrimSpace(input.IP),
			IsProxy:         input.IsProxy,
			IsHosting:       input.IsHosting,
			ObservedAt:      input.ObservedAt,
		})
		if err == nil {
			return nil
		}
		logger.C(ctx).Warnw("risk_observation_enqueue_failed", "user_id", userID, "error", err)
	}
	return s.Record(ctx, input)
}

// Score 计算用户风险评分，未知用户为 0
func (s *RiskService) Score(ctx context.Context, userID uint) (int, error) {
	if userID == 0 {
		return 0, nil
	}
	if score, hit, err := s.scoreCache.Get(ctx, userID); err == nil && hit {
		return score, nil
	} else if err != nil {
		logger.C(ctx).Warnw("risk_score_cache_get_failed", "user_id", userID, "error", err)
	}

	// 先取代数再读观测，期间有新观测写入时这次结果不会被当作最新值
	generation, genErr := s.scoreCache.Generation(ctx, userID)
	breakdown, err := s.Explain(ctx, userID)
	if err != nil {
		return 0, err
	}
	if genErr != nil {
		logger.C(ctx).Warnw("risk_score_cache_generation_failed", "user_id", userID, "error", genErr)
	} else if err := s.scoreCache.Set(ctx, userID, breakdown.Score, generation); err != nil {
		logger.C(ctx).Warnw("risk_score_cache_set_failed", "user_id", userID, "error", err)
	}
	s.metrics.ObserveRiskScore(breakdown.Score)
	return breakdown.Score, nil
}

// Explain 返回评分明细（不走缓存）
func (s *RiskService) Explain(ctx context.Context, userID uint) (RiskBreakdown, error) {
	if userID == 0 {
		return RiskBreakdown{}, nil
	}
	observations, err := s.repo.WithContext(ctx).ListObservationsByUser(userID)
	if err != nil {
		return RiskBreakdown{}, wrapStorageError("list observations", err)
	}
	return ExplainObservations(observations, s.nowFn(), s.rules), nil
}

// IsHighRisk 判断用户是否达到高风险阈值
func (s *RiskService) IsHighRisk(ctx context.Context, userID uint) (bool, int, error) {
	score, err := s.Score(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	return score >= s.threshold, score, nil
}

// ListObservations 后台查询观测记录
func (s *RiskService) ListObservations(ctx context.Context, filter repository.RiskObservationListFilter) ([]models.FingerprintObservation, int64, error) {
	rows, total, err := s.repo.WithContext(ctx).ListObservations(filter)
	if err != nil {
		return nil, 0, wrapStorageError("list observations", err)
	}
	return rows, total, nil
}
