package models

import (
	"time"

	"github.com/jobguard/internal/constants"
)

// User 用户表（由主站维护，本服务只读）
type User struct {
	ID        uint               `gorm:"primarykey" json:"id"`                        // 主键
	Email     string             `gorm:"uniqueIndex;not null" json:"email"`           // 邮箱
	Role      constants.UserRole `gorm:"type:varchar(20);not null;index" json:"role"` // 身份
	Country   string             `gorm:"type:varchar(8)" json:"country"`              // 国家代码
	Status    string             `gorm:"default:'active'" json:"status"`              // 账号状态
	CreatedAt time.Time          `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt time.Time          `json:"updated_at"`                                  // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
