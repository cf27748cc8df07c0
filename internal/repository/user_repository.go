package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jobguard/internal/models"

	"gorm.io/gorm"
)

// UserRepository 账号资料读取，角色与国家用于归因判定
// 账号本身由外部身份系统维护，这里只在初始化演示数据时写入
type UserRepository interface {
	WithContext(ctx context.Context) UserRepository
	GetByID(id uint) (*models.User, error)
	EnsureByEmail(user *models.User) (*models.User, error)
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建账号仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithContext 绑定请求上下文
func (r *GormUserRepository) WithContext(ctx context.Context) UserRepository {
	if ctx == nil {
		return r
	}
	return &GormUserRepository{db: r.db.WithContext(ctx)}
}

// GetByID 不存在时返回 nil, nil
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	found, err := findOne(r.db, &user, id)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// EnsureByEmail 按邮箱查找，不存在则插入；已存在时不覆盖资料
func (r *GormUserRepository) EnsureByEmail(user *models.User) (*models.User, error) {
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return nil, errors.New("user email is required")
	}
	row := *user
	row.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.Where("email = ?", row.Email).FirstOrCreate(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
