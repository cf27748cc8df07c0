package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskObservationListFilter 查询设备指纹观测的过滤条件
type RiskObservationListFilter struct {
	Page            int
	PageSize        int
	UserID          uint
	FingerprintHash string
	IP              string
	SeenFrom        *time.Time
}

// AffiliateLinkListFilter 查询推广链接的过滤条件
type AffiliateLinkListFilter struct {
	Page            int
	PageSize        int
	AffiliateUserID uint
	OfferID         uint
	Code            string
	IsActive        *bool
}

// AffiliateOfferListFilter 查询推广活动的过滤条件
type AffiliateOfferListFilter struct {
	Page       int
	PageSize   int
	TargetRole string
	ActiveOnly bool
	Keyword    string
}

// AffiliateRegistrationListFilter 查询推广注册的过滤条件
type AffiliateRegistrationListFilter struct {
	Page             int
	PageSize         int
	LinkID           uint
	AffiliateUserID  uint
	UserID           uint
	Status           string
	PayoutStatus     string
	PayoutUnresolved *bool
	Country          string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// PayoutRollupFilter 佣金汇总过滤条件
type PayoutRollupFilter struct {
	AffiliateUserID uint
	OfferID         uint
	QualifiedFrom   *time.Time
	QualifiedTo     *time.Time
}

// PayoutRollupRow 佣金汇总行（币种 × 结算状态）
type PayoutRollupRow struct {
	Currency     string          `json:"currency"`
	PayoutStatus string          `json:"payout_status"`
	Count        int64           `json:"count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// ReferralLinkListFilter 查询推荐链接的过滤条件
type ReferralLinkListFilter struct {
	Page           int
	PageSize       int
	ReferrerUserID uint
	JobPostID      uint
}
