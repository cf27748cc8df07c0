package models

import "time"

// FingerprintObservation 设备指纹与 IP 观测记录（按用户+指纹+IP 聚合）
type FingerprintObservation struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                                                                               // 主键
	UserID          uint      `gorm:"not null;index;uniqueIndex:idx_fingerprint_observation_unique,priority:1" json:"user_id"`                            // 用户ID
	FingerprintHash string    `gorm:"type:varchar(128);not null;index;uniqueIndex:idx_fingerprint_observation_unique,priority:2" json:"fingerprint_hash"` // 设备指纹哈希
	IP              string    `gorm:"column:ip;type:varchar(64);not null;uniqueIndex:idx_fingerprint_observation_unique,priority:3" json:"ip"`            // 客户端IP
	IsProxy         bool      `gorm:"not null;default:false" json:"is_proxy"`                                                                             // 是否代理出口
	IsHosting       bool      `gorm:"not null;default:false" json:"is_hosting"`                                                                           // 是否机房IP
	SeenCount       int64     `gorm:"not null;default:1" json:"seen_count"`                                                                               // 观测次数
	FirstSeenAt     time.Time `gorm:"not null" json:"first_seen_at"`                                                                                      // 首次观测时间
	LastSeenAt      time.Time `gorm:"not null;index" json:"last_seen_at"`                                                                                 // 最近观测时间
}

// TableName 指定表名
func (FingerprintObservation) TableName() string {
	return "fingerprint_observations"
}
