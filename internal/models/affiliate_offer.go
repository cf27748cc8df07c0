package models

import (
	"time"

	"github.com/jobguard/internal/constants"
)

// AffiliateOffer 推广活动
type AffiliateOffer struct {
	ID                     uint                  `gorm:"primarykey" json:"id"`                               // 主键
	Name                   string                `gorm:"type:varchar(128);not null" json:"name"`             // 活动名称
	TargetRole             constants.UserRole    `gorm:"type:varchar(20);not null" json:"target_role"`       // 目标注册身份
	PayoutModel            constants.PayoutModel `gorm:"type:varchar(20);not null" json:"payout_model"`      // 计费模式
	DefaultCPAAmount       *Money                `gorm:"type:decimal(20,2)" json:"default_cpa_amount"`       // 默认单次佣金
	DefaultRevsharePercent *Money                `gorm:"type:decimal(10,2)" json:"default_revshare_percent"` // 默认分成比例
	Currency               string                `gorm:"type:varchar(8);not null" json:"currency"`           // 币种
	IsActive               bool                  `gorm:"not null;index" json:"is_active"`                    // 是否启用
	CreatedAt              time.Time             `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt              time.Time             `json:"updated_at"`                                         // 更新时间

	GeoRules []AffiliateOfferGeoRule `gorm:"foreignKey:OfferID" json:"geo_rules,omitempty"` // 地区佣金规则
}

// TableName 指定表名
func (AffiliateOffer) TableName() string {
	return "affiliate_offers"
}

// AffiliateOfferGeoRule 推广活动地区佣金规则
type AffiliateOfferGeoRule struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                                                          // 主键
	OfferID         uint      `gorm:"not null;uniqueIndex:idx_affiliate_offer_geo_unique,priority:1" json:"offer_id"`                // 推广活动ID
	Country         string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_affiliate_offer_geo_unique,priority:2" json:"country"` // 国家代码
	CPAAmount       *Money    `gorm:"type:decimal(20,2)" json:"cpa_amount"`                                                          // 单次佣金
	RevsharePercent *Money    `gorm:"type:decimal(10,2)" json:"revshare_percent"`                                                    // 分成比例
	Currency        string    `gorm:"type:varchar(8)" json:"currency"`                                                               // 币种（为空沿用活动币种）
	IsActive        bool      `gorm:"not null" json:"is_active"`                                                                     // 是否启用
	CreatedAt       time.Time `json:"created_at"`                                                                                    // 创建时间
	UpdatedAt       time.Time `json:"updated_at"`                                                                                    // 更新时间
}

// TableName 指定表名
func (AffiliateOfferGeoRule) TableName() string {
	return "affiliate_offer_geo_rules"
}
