package repository

import "gorm.io/gorm"

// findOne 读取至多一行，未命中返回 found=false 且不产生 record not found 日志
func findOne(db *gorm.DB, dest interface{}, conds ...interface{}) (bool, error) {
	result := db.Limit(1).Find(dest, conds...)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
