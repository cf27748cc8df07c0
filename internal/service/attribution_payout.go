package service

import (
	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/models"
)

// PayoutSnapshot 达标时固化的佣金快照
type PayoutSnapshot struct {
	Model           constants.PayoutModel `json:"model"`
	Amount          *models.Money         `json:"amount"`
	RevsharePercent *models.Money         `json:"revshare_percent"`
	Currency        string                `json:"currency"`
	Source          string                `json:"source"`
	Unresolved      bool                  `json:"unresolved"`
}

// 佣金来源
const (
	payoutSourceGeoRule = "geo_rule"
	payoutSourceOffer   = "offer_default"
	payoutSourceNone    = "none"
)

// ResolvePayoutSnapshot 按地区规则优先、活动默认值兜底计算佣金；均不可用时标记待人工处理
func ResolvePayoutSnapshot(offer *models.AffiliateOffer, rule *models.AffiliateOfferGeoRule, fallbackCurrency string) PayoutSnapshot {
	if offer == nil {
		return PayoutSnapshot{Source: payoutSourceNone, Unresolved: true, Currency: fallbackCurrency}
	}
	snapshot := PayoutSnapshot{
		Model:    offer.PayoutModel,
		Currency: normalizeCurrency(offer.Currency, fallbackCurrency),
		Source:   payoutSourceNone,
	}
	if rule != nil && rule.IsActive {
		if value := payoutValue(offer.PayoutModel, rule.CPAAmount, rule.RevsharePercent); value != nil {
			snapshot.assign(value)
			snapshot.Currency = normalizeCurrency(rule.Currency, snapshot.Currency)
			snapshot.Source = payoutSourceGeoRule
			return snapshot
		}
	}
	if value := payoutValue(offer.PayoutModel, offer.DefaultCPAAmount, offer.DefaultRevsharePercent); value != nil {
		snapshot.assign(value)
		snapshot.Source = payoutSourceOffer
		return snapshot
	}
	snapshot.Unresolved = true
	return snapshot
}

func (p *PayoutSnapshot) assign(value *models.Money) {
	copied := *value
	switch p.Model {
	case constants.PayoutModelRevshare:
		p.RevsharePercent = &copied
	default:
		p.Amount = &copied
	}
}

// payoutValue 取与计费模式匹配的可用数值
func payoutValue(model constants.PayoutModel, cpa, revshare *models.Money) *models.Money {
	switch model {
	case constants.PayoutModelCPA:
		if cpa.Positive() {
			return cpa
		}
	case constants.PayoutModelRevshare:
		if revshare.Positive() && revshare.Decimal.LessThanOrEqual(maxRevsharePercent) {
			return revshare
		}
	}
	return nil
}
