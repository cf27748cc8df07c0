package models

import "time"

// ReferralLink 职位推荐链接（JobPostID 为空表示全站推荐）
type ReferralLink struct {
	ID                uint      `gorm:"primarykey" json:"id"`                              // 主键
	Code              string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"` // 推荐码
	ReferrerUserID    uint      `gorm:"not null;index" json:"referrer_user_id"`            // 推荐人用户ID
	JobPostID         *uint     `gorm:"index" json:"job_post_id,omitempty"`                // 职位ID
	IsActive          bool      `gorm:"not null;default:true" json:"is_active"`            // 是否启用
	ClickCount        int64     `gorm:"not null;default:0" json:"click_count"`             // 点击数
	RegistrationCount int64     `gorm:"not null;default:0" json:"registration_count"`      // 注册数
	CreatedAt         time.Time `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt         time.Time `json:"updated_at"`                                        // 更新时间
}

// TableName 指定表名
func (ReferralLink) TableName() string {
	return "referral_links"
}

// ReferralClick 推荐链接点击
type ReferralClick struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                  // 主键
	ClickID   string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"click_id"` // 点击ID
	LinkID    uint      `gorm:"not null;index" json:"link_id"`                         // 推荐链接ID
	ClientIP  string    `gorm:"type:varchar(64)" json:"client_ip"`                     // 客户端IP
	UserAgent string    `gorm:"type:varchar(1024)" json:"user_agent"`                  // 客户端UA
	CreatedAt time.Time `gorm:"index" json:"created_at"`                               // 创建时间
}

// TableName 指定表名
func (ReferralClick) TableName() string {
	return "referral_clicks"
}

// ReferralRegistration 推荐注册记录
type ReferralRegistration struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                                  // 主键
	LinkID    uint      `gorm:"not null;uniqueIndex:idx_referral_registration_unique,priority:1" json:"link_id"`       // 推荐链接ID
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_referral_registration_unique,priority:2" json:"user_id"` // 注册用户ID
	ClickID   *string   `gorm:"type:varchar(64)" json:"click_id,omitempty"`                                            // 关联点击ID
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                                               // 创建时间
}

// TableName 指定表名
func (ReferralRegistration) TableName() string {
	return "referral_registrations"
}
