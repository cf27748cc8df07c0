package models

import (
	"time"

	"github.com/jobguard/internal/constants"
)

// AffiliateRegistration 推广注册归因记录
type AffiliateRegistration struct {
	ID                    uint                         `gorm:"primarykey" json:"id"`                                                                   // 主键
	LinkID                uint                         `gorm:"not null;index;uniqueIndex:idx_affiliate_registration_unique,priority:1" json:"link_id"` // 推广链接ID
	ClickID               *string                      `gorm:"type:varchar(64);index" json:"click_id,omitempty"`                                       // 关联点击ID
	UserID                uint                         `gorm:"not null;index;uniqueIndex:idx_affiliate_registration_unique,priority:2" json:"user_id"` // 注册用户ID
	Role                  constants.UserRole           `gorm:"type:varchar(20);not null" json:"role"`                                                  // 注册身份
	Status                constants.RegistrationStatus `gorm:"type:varchar(20);not null;index" json:"status"`                                          // 归因状态
	RoleMismatch          bool                         `gorm:"not null;default:false" json:"role_mismatch"`                                            // 身份与活动不匹配
	Country               string                       `gorm:"type:varchar(8);index" json:"country"`                                                   // 国家代码
	RegisteredAt          time.Time                    `gorm:"not null;index" json:"registered_at"`                                                    // 注册时间
	QualifiedAt           *time.Time                   `gorm:"index" json:"qualified_at,omitempty"`                                                    // 达标时间
	PayoutModel           constants.PayoutModel        `gorm:"type:varchar(20)" json:"payout_model"`                                                   // 计费模式快照
	PayoutAmount          *Money                       `gorm:"type:decimal(20,2)" json:"payout_amount"`                                                // 佣金金额快照
	PayoutRevsharePercent *Money                       `gorm:"type:decimal(10,2)" json:"payout_revshare_percent"`                                      // 分成比例快照
	PayoutCurrency        string                       `gorm:"type:varchar(8)" json:"payout_currency"`                                                 // 佣金币种
	PayoutStatus          constants.PayoutStatus       `gorm:"type:varchar(20);not null;default:'pending';index" json:"payout_status"`                 // 结算状态
	PayoutUnresolved      bool                         `gorm:"not null;default:false;index" json:"payout_unresolved"`                                  // 佣金规则缺失待人工处理
	RejectReason          string                       `gorm:"type:varchar(255)" json:"reject_reason"`                                                 // 驳回原因
	CreatedAt             time.Time                    `gorm:"index" json:"created_at"`                                                                // 创建时间
	UpdatedAt             time.Time                    `json:"updated_at"`                                                                             // 更新时间

	Link *AffiliateLink `gorm:"foreignKey:LinkID" json:"link,omitempty"` // 推广链接
}

// TableName 指定表名
func (AffiliateRegistration) TableName() string {
	return "affiliate_registrations"
}
