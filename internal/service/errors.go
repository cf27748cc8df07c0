package service

import (
	"errors"
	"fmt"

	"github.com/jobguard/internal/repository"
)

// 业务错误
var (
	ErrInvalidInput              = errors.New("参数无效")
	ErrNotFound                  = errors.New("记录不存在")
	ErrLinkNotFound              = errors.New("推广链接不存在")
	ErrLinkInactive              = errors.New("推广链接已停用")
	ErrRoleInvalid               = errors.New("注册身份无效")
	ErrSelfReferral              = errors.New("不能通过自己的推广链接注册")
	ErrOfferNotFound             = errors.New("推广活动不存在")
	ErrOfferInvalid              = errors.New("推广活动配置无效")
	ErrRegistrationNotFound      = errors.New("推广注册不存在")
	ErrRegistrationStatusInvalid = errors.New("推广注册状态不允许该操作")
	ErrPayoutStatusInvalid       = errors.New("结算状态流转无效")
	ErrPayoutAmountInvalid       = errors.New("佣金金额无效")
	ErrLinkCodeExhausted         = errors.New("推广码生成失败")
	ErrUserNotFound              = errors.New("用户不存在")
	ErrUserDisabled              = errors.New("用户已被禁用")
)

// 存储错误（可重试）
var (
	ErrStorageUnavailable = errors.New("存储不可用")
	ErrStorageContention  = errors.New("存储写入冲突")
)

// wrapStorageError 将仓储层错误包装为存储错误，保留原始错误链
func wrapStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrStorageContention) {
		return err
	}
	if repository.IsContention(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageContention, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

