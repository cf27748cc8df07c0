package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralService 职位推荐链接计数服务（无佣金语义）
type ReferralService struct {
	repo  repository.ReferralRepository
	nowFn func() time.Time
}

// NewReferralService 创建推荐计数服务
func NewReferralService(repo repository.ReferralRepository) *ReferralService {
	return &ReferralService{repo: repo, nowFn: time.Now}
}

// ReferralClickInput 推荐点击输入
type ReferralClickInput struct {
	Code          string
	ClientClickID string
	IP            string
	UserAgent     string
}

// ReferralLinkStats 推荐链接统计
type ReferralLinkStats struct {
	LinkID            uint    `json:"link_id"`
	Code              string  `json:"code"`
	JobPostID         *uint   `json:"job_post_id,omitempty"`
	IsActive          bool    `json:"is_active"`
	ClickCount        int64   `json:"click_count"`
	RegistrationCount int64   `json:"registration_count"`
	ConversionRate    float64 `json:"conversion_rate"`
}

// CreateLink 创建推荐链接，jobPostID 为空表示全站推荐
func (s *ReferralService) CreateLink(ctx context.Context, referrerUserID uint, jobPostID *uint) (*models.ReferralLink, error) {
	if referrerUserID == 0 {
		return nil, ErrInvalidInput
	}
	if jobPostID != nil && *jobPostID == 0 {
		jobPostID = nil
	}
	repo := s.repo.WithContext(ctx)
	var link *models.ReferralLink
	_, err := createWithUniqueCode(func(code string) error {
		link = &models.ReferralLink{
			Code:           code,
			ReferrerUserID: referrerUserID,
			JobPostID:      jobPostID,
			IsActive:       true,
		}
		return repo.CreateLink(link)
	})
	if err != nil {
		return nil, wrapCodeError("create referral link", err)
	}
	logger.C(ctx).Infow("referral_link_created", "link_id", link.ID, "referrer_user_id", referrerUserID)
	return link, nil
}

func (s *ReferralService) resolveLink(repo repository.ReferralRepository, rawCode string) (*models.ReferralLink, error) {
	code := normalizeLinkCode(rawCode)
	if code == "" {
		return nil, ErrLinkNotFound
	}
	link, err := repo.GetLinkByCode(code)
	if err != nil {
		return nil, wrapStorageError("get referral link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

func (s *ReferralService) activeLink(repo repository.ReferralRepository, rawCode string) (*models.ReferralLink, error) {
	link, err := s.resolveLink(repo, rawCode)
	if err != nil {
		return nil, err
	}
	if !link.IsActive {
		return nil, ErrLinkInactive
	}
	return link, nil
}

// RecordClick 记录推荐点击，click_id 幂等
func (s *ReferralService) RecordClick(ctx context.Context, input ReferralClickInput) (string, bool, error) {
	repo := s.repo.WithContext(ctx)
	link, err := s.activeLink(repo, input.Code)
	if err != nil {
		return "", false, err
	}
	clickID := strings.TrimSpace(input.ClientClickID)
	if len(clickID) > clickIDMaxLen {
		return "", false, ErrInvalidInput
	}
	if clickID != "" {
		existing, err := repo.GetClickByClickID(clickID)
		if err != nil {
			return "", false, wrapStorageError("get referral click", err)
		}
		if existing != nil {
			return existing.ClickID, true, nil
		}
	} else {
		clickID = uuid.NewString()
	}

	created := false
	err = repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		inserted, err := txRepo.InsertClickOnce(&models.ReferralClick{
			ClickID:   clickID,
			LinkID:    link.ID,
			ClientIP:  strings.TrimSpace(input.IP),
			UserAgent: truncate(strings.TrimSpace(input.UserAgent), 1024),
			CreatedAt: s.nowFn(),
		})
		if err != nil || !inserted {
			return err
		}
		created = true
		return txRepo.IncrementClicks(link.ID)
	})
	if err != nil {
		return "", false, wrapStorageError("record referral click", err)
	}
	return clickID, !created, nil
}

// RecordRegistration 记录推荐注册，同一 (链接, 用户) 只计一次
func (s *ReferralService) RecordRegistration(ctx context.Context, code string, userID uint, clickID string) (*models.ReferralRegistration, bool, error) {
	if userID == 0 {
		return nil, false, ErrInvalidInput
	}
	repo := s.repo.WithContext(ctx)
	link, err := s.resolveLink(repo, code)
	if err != nil {
		return nil, false, err
	}
	// 已计入的注册直接返回，链接后来停用也不影响
	existing, err := repo.GetRegistration(link.ID, userID)
	if err != nil {
		return nil, false, wrapStorageError("get referral registration", err)
	}
	if existing != nil {
		return existing, true, nil
	}
	if !link.IsActive {
		return nil, false, ErrLinkInactive
	}
	if link.ReferrerUserID == userID {
		return nil, false, ErrSelfReferral
	}

	reg := &models.ReferralRegistration{
		LinkID:    link.ID,
		UserID:    userID,
		CreatedAt: s.nowFn(),
	}
	if trimmed := strings.TrimSpace(clickID); trimmed != "" {
		click, err := repo.GetClickByClickID(trimmed)
		if err != nil {
			return nil, false, wrapStorageError("get referral click", err)
		}
		if click != nil && click.LinkID == link.ID {
			reg.ClickID = &click.ClickID
		}
	}

	created := false
	err = repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		inserted, err := txRepo.InsertRegistrationOnce(reg)
		if err != nil || !inserted {
			return err
		}
		created = true
		return txRepo.IncrementRegistrations(link.ID)
	})
	if err != nil {
		return nil, false, wrapStorageError("record referral registration", err)
	}
	if !created {
		existing, err := repo.GetRegistration(link.ID, userID)
		if err != nil {
			return nil, false, wrapStorageError("get referral registration", err)
		}
		if existing == nil {
			return nil, false, ErrStorageUnavailable
		}
		return existing, true, nil
	}
	return reg, false, nil
}

// GetLinkStats 查询推荐链接计数
func (s *ReferralService) GetLinkStats(ctx context.Context, code string) (*ReferralLinkStats, error) {
	normalized := normalizeLinkCode(code)
	if normalized == "" {
		return nil, ErrLinkNotFound
	}
	link, err := s.repo.WithContext(ctx).GetLinkByCode(normalized)
	if err != nil {
		return nil, wrapStorageError("get referral link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	return &ReferralLinkStats{
		LinkID:            link.ID,
		Code:              link.Code,
		JobPostID:         link.JobPostID,
		IsActive:          link.IsActive,
		ClickCount:        link.ClickCount,
		RegistrationCount: link.RegistrationCount,
		ConversionRate:    calcConversionRate(link.RegistrationCount, link.ClickCount),
	}, nil
}

// ListLinks 查询推荐链接
func (s *ReferralService) ListLinks(ctx context.Context, filter repository.ReferralLinkListFilter) ([]models.ReferralLink, int64, error) {
	rows, total, err := s.repo.WithContext(ctx).ListLinks(filter)
	if err != nil {
		return nil, 0, wrapStorageError("list referral links", err)
	}
	return rows, total, nil
}

// calcConversionRate 转化率百分比（保留两位小数）
func calcConversionRate(conversions, clicks int64) float64 {
	if clicks <= 0 || conversions <= 0 {
		return 0
	}
	value := (float64(conversions) / float64(clicks)) * 100
	return math.Round(value*100) / 100
}
