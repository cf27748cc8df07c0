package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/metrics"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/queue"
	"github.com/jobguard/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttributionService 推广点击、注册归因与达标结算服务
type AttributionService struct {
	repo            repository.AffiliateRepository
	userRepo        repository.UserRepository
	risk            RiskChecker
	queueClient     *queue.Client
	metrics         metrics.Recorder
	defaultCurrency string
	asyncQualify    bool
	nowFn           func() time.Time
}

// NewAttributionService 创建推广归因服务
func NewAttributionService(
	repo repository.AffiliateRepository,
	userRepo repository.UserRepository,
	risk RiskChecker,
	queueClient *queue.Client,
	recorder metrics.Recorder,
	cfg config.AttributionConfig,
) *AttributionService {
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &AttributionService{
		repo:            repo,
		userRepo:        userRepo,
		risk:            risk,
		queueClient:     queueClient,
		metrics:         recorder,
		defaultCurrency: normalizeCurrency(cfg.DefaultCurrency, constants.CurrencyDefault),
		asyncQualify:    cfg.AsyncQualify,
		nowFn:           time.Now,
	}
}

// ClickInput 推广点击输入
type ClickInput struct {
	LinkCode      string
	ClientClickID string
	IP            string
	UserAgent     string
	Country       string
	Sub1          string
	Sub2          string
	Sub3          string
	Sub4          string
	Sub5          string
}

// AttributeInput 注册归因输入
type AttributeInput struct {
	LinkCode string
	UserID   uint
	Role     string
	ClickID  string
}

// AttributionResult 注册归因结果
type AttributionResult struct {
	Registration *models.AffiliateRegistration `json:"registration"`
	Existing     bool                          `json:"existing"`
	RoleMismatch bool                          `json:"role_mismatch"`
}

// QualificationResult 达标处理结果
type QualificationResult struct {
	Outcome          constants.QualificationOutcome `json:"outcome"`
	DenyReason       constants.DenyReason           `json:"deny_reason,omitempty"`
	Registration     *models.AffiliateRegistration  `json:"registration,omitempty"`
	AlreadyQualified bool                           `json:"already_qualified"`
	PayoutUnresolved bool                           `json:"payout_unresolved"`
}

// resolveLink 解析推广码对应的链接（不校验启用状态）
func (s *AttributionService) resolveLink(repo repository.AffiliateRepository, rawCode string) (*models.AffiliateLink, error) {
	code := normalizeLinkCode(rawCode)
	if code == "" {
		return nil, ErrLinkNotFound
	}
	link, err := repo.GetLinkByCode(code)
	if err != nil {
		return nil, wrapStorageError("get link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

// GetLink 按推广码获取启用中的链接（落地页与追踪代码）
func (s *AttributionService) GetLink(ctx context.Context, rawCode string) (*models.AffiliateLink, error) {
	link, err := s.resolveLink(s.repo.WithContext(ctx), rawCode)
	if err != nil {
		return nil, err
	}
	if !link.IsActive {
		return nil, ErrLinkInactive
	}
	return link, nil
}

// RecordClick 记录推广点击，同一 click_id 重复提交返回已有 ID 且不重复计数
func (s *AttributionService) RecordClick(ctx context.Context, input ClickInput) (string, bool, error) {
	repo := s.repo.WithContext(ctx)
	link, err := s.resolveLink(repo, input.LinkCode)
	if err != nil {
		return "", false, err
	}
	if !link.IsActive {
		return "", false, ErrLinkInactive
	}

	clientClickID := strings.TrimSpace(input.ClientClickID)
	if len(clientClickID) > clickIDMaxLen {
		return "", false, ErrInvalidInput
	}
	if clientClickID != "" {
		existing, err := repo.GetClickByClickID(clientClickID)
		if err != nil {
			return "", false, wrapStorageError("get click", err)
		}
		if existing != nil {
			s.metrics.IncClick(true)
			logger.C(ctx).Debugw("affiliate_click_duplicate", "click_id", clientClickID, "link_id", link.ID)
			return existing.ClickID, true, nil
		}
	}

	clickID := clientClickID
	if clickID == "" {
		clickID = uuid.NewString()
	}
	click := &models.AffiliateClick{
		ClickID:   clickID,
		LinkID:    link.ID,
		ClientIP:  strings.TrimSpace(input.IP),
		UserAgent: truncate(strings.TrimSpace(input.UserAgent), 1024),
		Country:   normalizeCountry(input.Country),
		Sub1:      truncate(strings.TrimSpace(input.Sub1), 255),
		Sub2:      truncate(strings.TrimSpace(input.Sub2), 255),
		Sub3:      truncate(strings.TrimSpace(input.Sub3), 255),
		Sub4:      truncate(strings.TrimSpace(input.Sub4), 255),
		Sub5:      truncate(strings.TrimSpace(input.Sub5), 255),
		CreatedAt: s.nowFn(),
	}

	created := false
	err = repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		inserted, err := txRepo.InsertClickOnce(click)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		created = true
		return txRepo.IncrementLinkClicks(link.ID)
	})
	if err != nil {
		return "", false, wrapStorageError("record click", err)
	}
	s.metrics.IncClick(!created)
	if !created {
		logger.C(ctx).Debugw("affiliate_click_duplicate", "click_id", clickID, "link_id", link.ID)
	}
	return clickID, !created, nil
}

// Attribute 将注册用户归因到推广链接，同一 (链接, 用户) 只归因一次
func (s *AttributionService) Attribute(ctx context.Context, input AttributeInput) (AttributionResult, error) {
	role, ok := constants.ParseUserRole(input.Role)
	if !ok {
		return AttributionResult{}, ErrRoleInvalid
	}
	if input.UserID == 0 {
		return AttributionResult{}, ErrInvalidInput
	}
	repo := s.repo.WithContext(ctx)
	link, err := s.resolveLink(repo, input.LinkCode)
	if err != nil {
		return AttributionResult{}, err
	}

	existing, err := repo.GetRegistration(link.ID, input.UserID)
	if err != nil {
		return AttributionResult{}, wrapStorageError("get registration", err)
	}
	if existing != nil {
		s.metrics.IncAttribution(true, existing.RoleMismatch)
		return AttributionResult{Registration: existing, Existing: true, RoleMismatch: existing.RoleMismatch}, nil
	}

	if !link.IsActive {
		return AttributionResult{}, ErrLinkInactive
	}
	if link.AffiliateUserID == input.UserID {
		return AttributionResult{}, ErrSelfReferral
	}
	offer := link.Offer
	if offer == nil {
		if offer, err = repo.GetOfferByID(link.OfferID); err != nil {
			return AttributionResult{}, wrapStorageError("get offer", err)
		}
		if offer == nil {
			return AttributionResult{}, ErrOfferNotFound
		}
	}

	var clickID *string
	country := ""
	if trimmed := strings.TrimSpace(input.ClickID); trimmed != "" {
		click, err := repo.GetClickByClickID(trimmed)
		if err != nil {
			return AttributionResult{}, wrapStorageError("get click", err)
		}
		if click != nil && click.LinkID == link.ID {
			clickID = &click.ClickID
			country = click.Country
		}
	}
	if country == "" && s.userRepo != nil {
		user, err := s.userRepo.WithContext(ctx).GetByID(input.UserID)
		if err != nil {
			return AttributionResult{}, wrapStorageError("get user", err)
		}
		if user != nil {
			country = normalizeCountry(user.Country)
		}
	}

	mismatch := role != offer.TargetRole
	status := constants.RegistrationStatusPending
	if mismatch {
		status = constants.RegistrationStatusUnqualified
	}
	now := s.nowFn()
	reg := &models.AffiliateRegistration{
		LinkID:       link.ID,
		ClickID:      clickID,
		UserID:       input.UserID,
		Role:         role,
		Status:       status,
		RoleMismatch: mismatch,
		Country:      country,
		RegisteredAt: now,
		PayoutModel:  offer.PayoutModel,
		PayoutStatus: constants.PayoutStatusPending,
	}

	created := false
	err = repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		inserted, err := txRepo.InsertRegistrationOnce(reg)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		created = true
		if err := txRepo.IncrementLinkRegistrations(link.ID); err != nil {
			return err
		}
		detail := ""
		if mismatch {
			detail = "role_mismatch:" + string(role) + "!=" + string(offer.TargetRole)
		}
		return txRepo.CreateEvent(&models.AffiliateRegistrationEvent{
			RegistrationID: reg.ID,
			Action:         constants.RegistrationActionCreated,
			ToStatus:       string(status),
			Detail:         detail,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return AttributionResult{}, wrapStorageError("attribute registration", err)
	}

	if !created {
		existing, err := repo.GetRegistration(link.ID, input.UserID)
		if err != nil {
			return AttributionResult{}, wrapStorageError("get registration", err)
		}
		if existing == nil {
			return AttributionResult{}, ErrStorageUnavailable
		}
		s.metrics.IncAttribution(true, existing.RoleMismatch)
		return AttributionResult{Registration: existing, Existing: true, RoleMismatch: existing.RoleMismatch}, nil
	}

	s.metrics.IncAttribution(false, mismatch)
	logger.C(ctx).Infow("affiliate_registration_attributed",
		"registration_id", reg.ID,
		"link_id", link.ID,
		"user_id", input.UserID,
		"role_mismatch", mismatch,
		"country", country,
	)
	return AttributionResult{Registration: reg, RoleMismatch: mismatch}, nil
}

// RequestQualify 触发达标处理，开启异步时投递队列并返回 queued=true
func (s *AttributionService) RequestQualify(ctx context.Context, registrationID uint) (QualificationResult, bool, error) {
	if s.asyncQualify && s.queueClient.Enabled() && registrationID != 0 {
		err := s.queueClient.EnqueueAffiliateQualify(queue.AffiliateQualifyPayload{RegistrationID: registrationID})
		if err == nil {
			return QualificationResult{}, true, nil
		}
		logger.C(ctx).Warnw("affiliate_qualify_enqueue_failed", "registration_id", registrationID, "error", err)
	}
	result, err := s.Qualify(ctx, registrationID)
	return result, false, err
}

// Qualify 将待达标注册推进为已达标并固化佣金快照；高风险用户拒绝达标
func (s *AttributionService) Qualify(ctx context.Context, registrationID uint) (QualificationResult, error) {
	if registrationID == 0 {
		return QualificationResult{}, ErrRegistrationNotFound
	}
	repo := s.repo.WithContext(ctx)
	reg, err := repo.GetRegistrationByID(registrationID)
	if err != nil {
		return QualificationResult{}, wrapStorageError("get registration", err)
	}
	if reg == nil {
		return QualificationResult{}, ErrRegistrationNotFound
	}
	switch reg.Status {
	case constants.RegistrationStatusQualified:
		return alreadyQualified(reg), nil
	case constants.RegistrationStatusPending:
	default:
		return QualificationResult{}, ErrRegistrationStatusInvalid
	}

	if s.risk != nil {
		high, score, err := s.risk.IsHighRisk(ctx, reg.UserID)
		if err != nil {
			return QualificationResult{}, err
		}
		if high {
			if err := repo.CreateEvent(&models.AffiliateRegistrationEvent{
				RegistrationID: reg.ID,
				Action:         constants.RegistrationActionFraudDenied,
				FromStatus:     string(reg.Status),
				ToStatus:       string(reg.Status),
				Detail:         string(constants.DenyReasonFraudRisk),
				CreatedAt:      s.nowFn(),
			}); err != nil {
				logger.C(ctx).Warnw("affiliate_fraud_event_create_failed", "registration_id", reg.ID, "error", err)
			}
			s.metrics.IncQualification(string(constants.QualificationDenied), false)
			logger.C(ctx).Infow("affiliate_qualification_denied",
				"registration_id", reg.ID,
				"user_id", reg.UserID,
				"risk_score", score,
			)
			return QualificationResult{
				Outcome:      constants.QualificationDenied,
				DenyReason:   constants.DenyReasonFraudRisk,
				Registration: reg,
			}, nil
		}
	}

	var snapshot PayoutSnapshot
	var raced *models.AffiliateRegistration
	err = repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		locked, err := txRepo.GetRegistrationByIDForUpdate(registrationID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrRegistrationNotFound
		}
		if locked.Status != constants.RegistrationStatusPending {
			raced = locked
			return nil
		}
		offer, err := s.registrationOffer(txRepo, locked)
		if err != nil {
			return err
		}
		rule, err := txRepo.GetActiveGeoRule(offer.ID, locked.Country)
		if err != nil {
			return err
		}
		snapshot = ResolvePayoutSnapshot(offer, rule, s.defaultCurrency)

		now := s.nowFn()
		ok, err := txRepo.TransitionRegistration(locked.ID, constants.RegistrationStatusPending, map[string]interface{}{
			"status":                  constants.RegistrationStatusQualified,
			"qualified_at":            now,
			"payout_model":            snapshot.Model,
			"payout_amount":           snapshot.Amount,
			"payout_revshare_percent": snapshot.RevsharePercent,
			"payout_currency":         snapshot.Currency,
			"payout_status":           constants.PayoutStatusPending,
			"payout_unresolved":       snapshot.Unresolved,
		})
		if err != nil {
			return err
		}
		if !ok {
			current, err := txRepo.GetRegistrationByID(locked.ID)
			if err != nil {
				return err
			}
			raced = current
			return nil
		}
		return txRepo.CreateEvent(&models.AffiliateRegistrationEvent{
			RegistrationID: locked.ID,
			Action:         constants.RegistrationActionQualified,
			FromStatus:     string(constants.RegistrationStatusPending),
			ToStatus:       string(constants.RegistrationStatusQualified),
			Detail:         "payout_source:" + snapshot.Source,
			CreatedAt:      now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) || errors.Is(err, ErrOfferNotFound) {
			return QualificationResult{}, err
		}
		return QualificationResult{}, wrapStorageError("qualify registration", err)
	}
	if raced != nil {
		if raced.Status == constants.RegistrationStatusQualified {
			return alreadyQualified(raced), nil
		}
		return QualificationResult{}, ErrRegistrationStatusInvalid
	}

	updated, err := repo.GetRegistrationByID(registrationID)
	if err != nil {
		return QualificationResult{}, wrapStorageError("get registration", err)
	}
	s.metrics.IncQualification(string(constants.QualificationQualified), snapshot.Unresolved)
	if snapshot.Unresolved {
		logger.C(ctx).Warnw("affiliate_payout_unresolved",
			"registration_id", registrationID,
			"link_id", updated.LinkID,
			"country", updated.Country,
		)
	} else {
		logger.C(ctx).Infow("affiliate_registration_qualified",
			"registration_id", registrationID,
			"payout_source", snapshot.Source,
			"currency", snapshot.Currency,
		)
	}
	return QualificationResult{
		Outcome:          constants.QualificationQualified,
		Registration:     updated,
		PayoutUnresolved: snapshot.Unresolved,
	}, nil
}

func alreadyQualified(reg *models.AffiliateRegistration) QualificationResult {
	return QualificationResult{
		Outcome:          constants.QualificationQualified,
		Registration:     reg,
		AlreadyQualified: true,
		PayoutUnresolved: reg.PayoutUnresolved,
	}
}

func (s *AttributionService) registrationOffer(repo repository.AffiliateRepository, reg *models.AffiliateRegistration) (*models.AffiliateOffer, error) {
	if reg.Link != nil && reg.Link.Offer != nil {
		return reg.Link.Offer, nil
	}
	offerID := uint(0)
	if reg.Link != nil {
		offerID = reg.Link.OfferID
	} else {
		link, err := repo.GetLinkByID(reg.LinkID)
		if err != nil {
			return nil, err
		}
		if link != nil {
			offerID = link.OfferID
		}
	}
	offer, err := repo.GetOfferByID(offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}
	return offer, nil
}

// Reject 驳回待达标注册（终态）
func (s *AttributionService) Reject(ctx context.Context, registrationID uint, reason string) (*models.AffiliateRegistration, error) {
	if registrationID == 0 {
		return nil, ErrRegistrationNotFound
	}
	reason = truncate(strings.TrimSpace(reason), 255)
	now := s.nowFn()
	repo := s.repo.WithContext(ctx)
	transitioned := false
	err := repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		ok, err := txRepo.TransitionRegistration(registrationID, constants.RegistrationStatusPending, map[string]interface{}{
			"status":        constants.RegistrationStatusUnqualified,
			"reject_reason": reason,
		})
		if err != nil || !ok {
			return err
		}
		transitioned = true
		return txRepo.CreateEvent(&models.AffiliateRegistrationEvent{
			RegistrationID: registrationID,
			Action:         constants.RegistrationActionRejected,
			FromStatus:     string(constants.RegistrationStatusPending),
			ToStatus:       string(constants.RegistrationStatusUnqualified),
			Detail:         reason,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, wrapStorageError("reject registration", err)
	}
	reg, err := repo.GetRegistrationByID(registrationID)
	if err != nil {
		return nil, wrapStorageError("get registration", err)
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	if !transitioned {
		return nil, ErrRegistrationStatusInvalid
	}
	logger.C(ctx).Infow("affiliate_registration_rejected", "registration_id", registrationID, "reason", reason)
	return reg, nil
}

// ResolvePayout 人工补录待处理注册的佣金金额
func (s *AttributionService) ResolvePayout(ctx context.Context, registrationID uint, amount models.Money, currency string) (*models.AffiliateRegistration, error) {
	if registrationID == 0 {
		return nil, ErrRegistrationNotFound
	}
	if !amount.Decimal.IsPositive() {
		return nil, ErrPayoutAmountInvalid
	}
	currency = normalizeCurrency(currency, s.defaultCurrency)
	repo := s.repo.WithContext(ctx)
	resolved := false
	err := repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		ok, err := txRepo.ResolvePayout(registrationID, amount, currency)
		if err != nil || !ok {
			return err
		}
		resolved = true
		return txRepo.CreateEvent(&models.AffiliateRegistrationEvent{
			RegistrationID: registrationID,
			Action:         constants.RegistrationActionPayoutResolved,
			FromStatus:     string(constants.RegistrationStatusQualified),
			ToStatus:       string(constants.RegistrationStatusQualified),
			Detail:         amount.String() + " " + currency,
			CreatedAt:      s.nowFn(),
		})
	})
	if err != nil {
		return nil, wrapStorageError("resolve payout", err)
	}
	reg, err := repo.GetRegistrationByID(registrationID)
	if err != nil {
		return nil, wrapStorageError("get registration", err)
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	if !resolved {
		return nil, ErrRegistrationStatusInvalid
	}
	logger.C(ctx).Infow("affiliate_payout_resolved", "registration_id", registrationID, "amount", amount.String(), "currency", currency)
	return reg, nil
}

// UpdatePayoutStatus 推进结算状态 pending → approved → paid（由外部结算流程调用）
func (s *AttributionService) UpdatePayoutStatus(ctx context.Context, registrationID uint, rawNext string) (*models.AffiliateRegistration, error) {
	next, ok := constants.ParsePayoutStatus(rawNext)
	if !ok {
		return nil, ErrPayoutStatusInvalid
	}
	repo := s.repo.WithContext(ctx)
	reg, err := repo.GetRegistrationByID(registrationID)
	if err != nil {
		return nil, wrapStorageError("get registration", err)
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	if reg.Status != constants.RegistrationStatusQualified {
		return nil, ErrRegistrationStatusInvalid
	}
	expected, ok := reg.PayoutStatus.Next()
	if !ok || expected != next || reg.PayoutUnresolved {
		return nil, ErrPayoutStatusInvalid
	}

	err = repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		moved, err := txRepo.TransitionPayoutStatus(registrationID, reg.PayoutStatus, next)
		if err != nil {
			return err
		}
		if !moved {
			return ErrPayoutStatusInvalid
		}
		return txRepo.CreateEvent(&models.AffiliateRegistrationEvent{
			RegistrationID: registrationID,
			Action:         constants.RegistrationActionPayoutStatus,
			FromStatus:     string(reg.PayoutStatus),
			ToStatus:       string(next),
			CreatedAt:      s.nowFn(),
		})
	})
	if err != nil {
		if errors.Is(err, ErrPayoutStatusInvalid) {
			return nil, err
		}
		return nil, wrapStorageError("update payout status", err)
	}
	logger.C(ctx).Infow("affiliate_payout_status_updated",
		"registration_id", registrationID,
		"from", reg.PayoutStatus,
		"to", next,
	)
	updated, err := repo.GetRegistrationByID(registrationID)
	if err != nil {
		return nil, wrapStorageError("get registration", err)
	}
	return updated, nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := 0
	for i := range value {
		if i > max {
			break
		}
		cut = i
	}
	return value[:cut]
}
