package models

import "time"

// AffiliateRegistrationEvent 推广注册状态流转审计（只追加）
type AffiliateRegistrationEvent struct {
	ID             uint      `gorm:"primarykey" json:"id"`                          // 主键
	RegistrationID uint      `gorm:"not null;index" json:"registration_id"`         // 推广注册ID
	Action         string    `gorm:"type:varchar(32);not null;index" json:"action"` // 动作
	FromStatus     string    `gorm:"type:varchar(20)" json:"from_status"`           // 原状态
	ToStatus       string    `gorm:"type:varchar(20)" json:"to_status"`             // 新状态
	Detail         string    `gorm:"type:varchar(512)" json:"detail"`               // 说明
	CreatedAt      time.Time `gorm:"index;not null" json:"created_at"`              // 创建时间
}

// TableName 指定表名
func (AffiliateRegistrationEvent) TableName() string {
	return "affiliate_registration_events"
}
