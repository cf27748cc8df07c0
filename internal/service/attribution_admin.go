package service

import (
	"context"
	"strings"

	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/repository"

	"github.com/shopspring/decimal"
)

var maxRevsharePercent = decimal.NewFromInt(100)

// CreateOfferInput 创建推广活动输入
type CreateOfferInput struct {
	Name                   string
	TargetRole             string
	PayoutModel            string
	DefaultCPAAmount       *decimal.Decimal
	DefaultRevsharePercent *decimal.Decimal
	Currency               string
	IsActive               bool
}

// GeoRuleInput 地区佣金规则输入
type GeoRuleInput struct {
	OfferID         uint
	Country         string
	CPAAmount       *decimal.Decimal
	RevsharePercent *decimal.Decimal
	Currency        string
	IsActive        bool
}

// CreateLinkInput 创建推广链接输入
type CreateLinkInput struct {
	AffiliateUserID uint
	OfferID         uint
	LandingPath     string
	HeadSnippet     string
	BodySnippet     string
}

// CreateOffer 创建推广活动
func (s *AttributionService) CreateOffer(ctx context.Context, input CreateOfferInput) (*models.AffiliateOffer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrOfferInvalid
	}
	role, ok := constants.ParseUserRole(input.TargetRole)
	if !ok {
		return nil, ErrRoleInvalid
	}
	model, ok := constants.ParsePayoutModel(input.PayoutModel)
	if !ok {
		return nil, ErrOfferInvalid
	}
	cpa, err := optionalAmount(input.DefaultCPAAmount)
	if err != nil {
		return nil, err
	}
	percent, err := optionalPercent(input.DefaultRevsharePercent)
	if err != nil {
		return nil, err
	}
	offer := &models.AffiliateOffer{
		Name:                   truncate(name, 128),
		TargetRole:             role,
		PayoutModel:            model,
		DefaultCPAAmount:       cpa,
		DefaultRevsharePercent: percent,
		Currency:               normalizeCurrency(input.Currency, s.defaultCurrency),
		IsActive:               input.IsActive,
	}
	if err := s.repo.WithContext(ctx).CreateOffer(offer); err != nil {
		return nil, wrapStorageError("create offer", err)
	}
	logger.C(ctx).Infow("affiliate_offer_created", "offer_id", offer.ID, "target_role", role, "payout_model", model)
	return offer, nil
}

// ListOffers 查询推广活动（含地区规则）
func (s *AttributionService) ListOffers(ctx context.Context, filter repository.AffiliateOfferListFilter) ([]models.AffiliateOffer, int64, error) {
	rows, total, err := s.repo.WithContext(ctx).ListOffers(filter)
	if err != nil {
		return nil, 0, wrapStorageError("list offers", err)
	}
	return rows, total, nil
}

// UpsertGeoRule 创建或覆盖地区佣金规则，只影响之后达标的注册
func (s *AttributionService) UpsertGeoRule(ctx context.Context, input GeoRuleInput) (*models.AffiliateOfferGeoRule, error) {
	country := normalizeCountry(input.Country)
	if input.OfferID == 0 || country == "" {
		return nil, ErrInvalidInput
	}
	repo := s.repo.WithContext(ctx)
	offer, err := repo.GetOfferByID(input.OfferID)
	if err != nil {
		return nil, wrapStorageError("get offer", err)
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}
	cpa, err := optionalAmount(input.CPAAmount)
	if err != nil {
		return nil, err
	}
	percent, err := optionalPercent(input.RevsharePercent)
	if err != nil {
		return nil, err
	}
	currency := ""
	if strings.TrimSpace(input.Currency) != "" {
		currency = normalizeCurrency(input.Currency, offer.Currency)
	}
	rule := &models.AffiliateOfferGeoRule{
		OfferID:         offer.ID,
		Country:         country,
		CPAAmount:       cpa,
		RevsharePercent: percent,
		Currency:        currency,
		IsActive:        input.IsActive,
	}
	if err := repo.UpsertGeoRule(rule); err != nil {
		return nil, wrapStorageError("upsert geo rule", err)
	}
	saved, err := repo.GetActiveGeoRule(offer.ID, country)
	if err != nil {
		return nil, wrapStorageError("get geo rule", err)
	}
	logger.C(ctx).Infow("affiliate_geo_rule_upserted", "offer_id", offer.ID, "country", country, "is_active", input.IsActive)
	if saved == nil {
		return rule, nil
	}
	return saved, nil
}

// CreateLink 为推广者创建推广链接
func (s *AttributionService) CreateLink(ctx context.Context, input CreateLinkInput) (*models.AffiliateLink, error) {
	if input.AffiliateUserID == 0 || input.OfferID == 0 {
		return nil, ErrInvalidInput
	}
	repo := s.repo.WithContext(ctx)
	offer, err := repo.GetOfferByID(input.OfferID)
	if err != nil {
		return nil, wrapStorageError("get offer", err)
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}
	if !offer.IsActive {
		return nil, ErrOfferInvalid
	}
	if s.userRepo != nil {
		user, err := s.userRepo.WithContext(ctx).GetByID(input.AffiliateUserID)
		if err != nil {
			return nil, wrapStorageError("get user", err)
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		if strings.TrimSpace(user.Status) == constants.UserStatusDisabled {
			return nil, ErrUserDisabled
		}
	}

	var link *models.AffiliateLink
	_, err = createWithUniqueCode(func(code string) error {
		link = &models.AffiliateLink{
			Code:            code,
			AffiliateUserID: input.AffiliateUserID,
			OfferID:         offer.ID,
			IsActive:        true,
			LandingPath:     truncate(strings.TrimSpace(input.LandingPath), 512),
			HeadSnippet:     input.HeadSnippet,
			BodySnippet:     input.BodySnippet,
		}
		return repo.CreateLink(link)
	})
	if err != nil {
		return nil, wrapCodeError("create link", err)
	}
	logger.C(ctx).Infow("affiliate_link_created", "link_id", link.ID, "code", link.Code, "offer_id", offer.ID)
	return link, nil
}

// SetLinkActive 启用或停用推广链接
func (s *AttributionService) SetLinkActive(ctx context.Context, linkID uint, active bool) (*models.AffiliateLink, error) {
	repo := s.repo.WithContext(ctx)
	ok, err := repo.SetLinkActive(linkID, active)
	if err != nil {
		return nil, wrapStorageError("set link active", err)
	}
	if !ok {
		return nil, ErrLinkNotFound
	}
	link, err := repo.GetLinkByID(linkID)
	if err != nil {
		return nil, wrapStorageError("get link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

// ListLinks 查询推广链接
func (s *AttributionService) ListLinks(ctx context.Context, filter repository.AffiliateLinkListFilter) ([]models.AffiliateLink, int64, error) {
	rows, total, err := s.repo.WithContext(ctx).ListLinks(filter)
	if err != nil {
		return nil, 0, wrapStorageError("list links", err)
	}
	return rows, total, nil
}

// ListRegistrations 查询推广注册
func (s *AttributionService) ListRegistrations(ctx context.Context, filter repository.AffiliateRegistrationListFilter) ([]models.AffiliateRegistration, int64, error) {
	rows, total, err := s.repo.WithContext(ctx).ListRegistrations(filter)
	if err != nil {
		return nil, 0, wrapStorageError("list registrations", err)
	}
	return rows, total, nil
}

// ListRegistrationEvents 查询注册状态流转审计
func (s *AttributionService) ListRegistrationEvents(ctx context.Context, registrationID uint) ([]models.AffiliateRegistrationEvent, error) {
	rows, err := s.repo.WithContext(ctx).ListEvents(registrationID)
	if err != nil {
		return nil, wrapStorageError("list registration events", err)
	}
	return rows, nil
}

// PayoutRollup 按币种与结算状态汇总佣金（只读报表）
func (s *AttributionService) PayoutRollup(ctx context.Context, filter repository.PayoutRollupFilter) ([]repository.PayoutRollupRow, error) {
	rows, err := s.repo.WithContext(ctx).SumPayouts(filter)
	if err != nil {
		return nil, wrapStorageError("sum payouts", err)
	}
	return rows, nil
}

// CountUnresolvedPayouts 统计待人工补录佣金的注册数
func (s *AttributionService) CountUnresolvedPayouts(ctx context.Context) (int64, error) {
	total, err := s.repo.WithContext(ctx).CountUnresolvedPayouts()
	if err != nil {
		return 0, wrapStorageError("count unresolved payouts", err)
	}
	s.metrics.SetUnresolvedPayouts(total)
	return total, nil
}

func optionalAmount(value *decimal.Decimal) (*models.Money, error) {
	if value == nil {
		return nil, nil
	}
	if value.IsNegative() {
		return nil, ErrPayoutAmountInvalid
	}
	return models.MoneyPtr(*value), nil
}

func optionalPercent(value *decimal.Decimal) (*models.Money, error) {
	if value == nil {
		return nil, nil
	}
	if value.IsNegative() || value.GreaterThan(maxRevsharePercent) {
		return nil, ErrPayoutAmountInvalid
	}
	return models.MoneyPtr(*value), nil
}
