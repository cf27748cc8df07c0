package models

import "time"

// AffiliateClick 推广点击记录（click_id 为幂等键）
type AffiliateClick struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                       // 主键
	ClickID   string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"click_id"`      // 点击ID
	LinkID    uint      `gorm:"not null;index" json:"link_id"`                              // 推广链接ID
	ClientIP  string    `gorm:"type:varchar(64)" json:"client_ip"`                          // 客户端IP
	UserAgent string    `gorm:"type:varchar(1024)" json:"user_agent"`                       // 客户端UA
	Country   string    `gorm:"type:varchar(8);index" json:"country"`                       // 国家代码
	Sub1      string    `gorm:"type:varchar(255)" json:"sub1"`                              // 子渠道参数1
	Sub2      string    `gorm:"type:varchar(255)" json:"sub2"`                              // 子渠道参数2
	Sub3      string    `gorm:"type:varchar(255)" json:"sub3"`                              // 子渠道参数3
	Sub4      string    `gorm:"type:varchar(255)" json:"sub4"`                              // 子渠道参数4
	Sub5      string    `gorm:"type:varchar(255)" json:"sub5"`                              // 子渠道参数5
	CreatedAt time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"` // 创建时间
}

// TableName 指定表名
func (AffiliateClick) TableName() string {
	return "affiliate_clicks"
}
