package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrContention 存储层锁冲突或序列化失败，可由调用方有限重试
var ErrContention = errors.New("storage contention")

// insertOnce 按唯一键插入一行，冲突时不做任何修改并返回 created=false。
// 并发写入时竞争失败的一方视为幂等命中。
func insertOnce(db *gorm.DB, row interface{}, conflictColumns ...string) (bool, error) {
	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, name := range conflictColumns {
		columns = append(columns, clause.Column{Name: name})
	}
	result := db.Clauses(clause.OnConflict{Columns: columns, DoNothing: true}).Create(row)
	if result.Error != nil {
		return false, classifyWriteError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// IsUniqueViolation 判断是否唯一约束冲突
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// IsContention 判断是否为锁等待、死锁或序列化冲突
func IsContention(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrContention) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range contentionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var contentionMarkers = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"deadlock detected",
	"could not serialize access",
	"lock timeout",
	"sqlstate 40001",
	"sqlstate 40p01",
}

func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	if IsContention(err) && !errors.Is(err, ErrContention) {
		return errors.Join(ErrContention, err)
	}
	return err
}
