package service

import (
	"strings"
	"time"
)

const dayBucketLayout = "2006-01-02"

// DayBucketer 按时区与桶宽度（天）计算配额日期桶
type DayBucketer struct {
	loc  *time.Location
	days int
}

// NewDayBucketer 创建日期桶计算器，空时区使用 UTC
func NewDayBucketer(timezone string, bucketDays int) (*DayBucketer, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(timezone); tz != "" && !strings.EqualFold(tz, "UTC") {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		loc = parsed
	}
	if bucketDays <= 0 {
		bucketDays = 1
	}
	return &DayBucketer{loc: loc, days: bucketDays}, nil
}

// Bucket 返回时间点所属桶的起始日期（YYYY-MM-DD）
func (b *DayBucketer) Bucket(at time.Time) string {
	return b.Start(at).Format(dayBucketLayout)
}

// Start 返回桶起始时刻（本地时区零点）
func (b *DayBucketer) Start(at time.Time) time.Time {
	local := at.In(b.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, b.loc)
	if b.days <= 1 {
		return day
	}
	// 以 UTC 纪元日序号对齐，避免夏令时影响天数计算
	epochDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
	offset := int(epochDay % int64(b.days))
	if offset < 0 {
		offset += b.days
	}
	return day.AddDate(0, 0, -offset)
}
