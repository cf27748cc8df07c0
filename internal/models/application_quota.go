package models

import "time"

// JobPostQuota 职位投递配额聚合（累计额度与每日额度模板）
type JobPostQuota struct {
	ID              uint      `gorm:"primarykey" json:"id"`                       // 主键
	JobPostID       uint      `gorm:"not null;uniqueIndex" json:"job_post_id"`    // 职位ID
	AllowedPerDay   int64     `gorm:"not null;default:0" json:"allowed_per_day"`  // 每日投递上限
	CumulativeLimit int64     `gorm:"not null;default:0" json:"cumulative_limit"` // 累计投递上限
	CumulativeUsed  int64     `gorm:"not null;default:0" json:"cumulative_used"`  // 累计已用
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt       time.Time `json:"updated_at"`                                 // 更新时间
}

// TableName 指定表名
func (JobPostQuota) TableName() string {
	return "job_post_quotas"
}

// ApplicationQuota 职位按日投递额度
type ApplicationQuota struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                                                               // 主键
	JobPostID     uint      `gorm:"not null;uniqueIndex:idx_application_quota_day,priority:1" json:"job_post_id"`                       // 职位ID
	DayBucket     string    `gorm:"type:varchar(16);not null;index;uniqueIndex:idx_application_quota_day,priority:2" json:"day_bucket"` // 日期分桶（YYYY-MM-DD）
	AllowedPerDay int64     `gorm:"not null;default:0" json:"allowed_per_day"`                                                          // 当日上限快照
	UsedPerDay    int64     `gorm:"not null;default:0" json:"used_per_day"`                                                             // 当日已用
	CreatedAt     time.Time `json:"created_at"`                                                                                         // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                                                                                         // 更新时间
}

// TableName 指定表名
func (ApplicationQuota) TableName() string {
	return "application_quotas"
}
