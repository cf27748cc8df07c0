package models

import "time"

// AffiliateLink 推广链接
type AffiliateLink struct {
	ID                uint      `gorm:"primarykey" json:"id"`                              // 主键
	Code              string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"` // 推广码（大写）
	AffiliateUserID   uint      `gorm:"not null;index" json:"affiliate_user_id"`           // 推广者用户ID
	OfferID           uint      `gorm:"not null;index" json:"offer_id"`                    // 推广活动ID
	IsActive          bool      `gorm:"not null;default:true;index" json:"is_active"`      // 是否启用
	LandingPath       string    `gorm:"type:varchar(512)" json:"landing_path"`             // 落地页路径
	HeadSnippet       string    `gorm:"type:text" json:"head_snippet"`                     // 追踪代码（head）
	BodySnippet       string    `gorm:"type:text" json:"body_snippet"`                     // 追踪代码（body）
	ClickCount        int64     `gorm:"not null;default:0" json:"click_count"`             // 点击数
	RegistrationCount int64     `gorm:"not null;default:0" json:"registration_count"`      // 注册数
	CreatedAt         time.Time `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt         time.Time `json:"updated_at"`                                        // 更新时间

	Offer *AffiliateOffer `gorm:"foreignKey:OfferID" json:"offer,omitempty"` // 推广活动
}

// TableName 指定表名
func (AffiliateLink) TableName() string {
	return "affiliate_links"
}
