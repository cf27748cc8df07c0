package constants

import "strings"

// UserRole 注册用户身份
type UserRole string

// 用户身份常量
const (
	UserRoleEmployer  UserRole = "employer"
	UserRoleCandidate UserRole = "candidate"
)

// ParseUserRole 解析用户身份，未知值返回 false
func ParseUserRole(raw string) (UserRole, bool) {
	switch UserRole(strings.ToLower(strings.TrimSpace(raw))) {
	case UserRoleEmployer:
		return UserRoleEmployer, true
	case UserRoleCandidate:
		return UserRoleCandidate, true
	default:
		return "", false
	}
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// RegistrationStatus 推广注册归因状态
type RegistrationStatus string

// 推广注册状态常量
const (
	RegistrationStatusPending     RegistrationStatus = "pending"
	RegistrationStatusQualified   RegistrationStatus = "qualified"
	RegistrationStatusUnqualified RegistrationStatus = "unqualified"
)

// ParseRegistrationStatus 解析注册状态
func ParseRegistrationStatus(raw string) (RegistrationStatus, bool) {
	switch RegistrationStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case RegistrationStatusPending:
		return RegistrationStatusPending, true
	case RegistrationStatusQualified:
		return RegistrationStatusQualified, true
	case RegistrationStatusUnqualified:
		return RegistrationStatusUnqualified, true
	default:
		return "", false
	}
}

// PayoutStatus 佣金结算状态（由外部结算流程推进）
type PayoutStatus string

// 结算状态常量
const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusApproved PayoutStatus = "approved"
	PayoutStatusPaid     PayoutStatus = "paid"
)

// ParsePayoutStatus 解析结算状态
func ParsePayoutStatus(raw string) (PayoutStatus, bool) {
	switch PayoutStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case PayoutStatusPending:
		return PayoutStatusPending, true
	case PayoutStatusApproved:
		return PayoutStatusApproved, true
	case PayoutStatusPaid:
		return PayoutStatusPaid, true
	default:
		return "", false
	}
}

// Next 返回结算状态的下一个合法状态
func (s PayoutStatus) Next() (PayoutStatus, bool) {
	switch s {
	case PayoutStatusPending:
		return PayoutStatusApproved, true
	case PayoutStatusApproved:
		return PayoutStatusPaid, true
	default:
		return "", false
	}
}

// PayoutModel 推广计费模式
type PayoutModel string

// 计费模式常量
const (
	PayoutModelCPA      PayoutModel = "cpa"
	PayoutModelRevshare PayoutModel = "revshare"
)

// ParsePayoutModel 解析计费模式
func ParsePayoutModel(raw string) (PayoutModel, bool) {
	switch PayoutModel(strings.ToLower(strings.TrimSpace(raw))) {
	case PayoutModelCPA:
		return PayoutModelCPA, true
	case PayoutModelRevshare:
		return PayoutModelRevshare, true
	default:
		return "", false
	}
}

// AdmissionOutcome 投递配额准入结果
type AdmissionOutcome string

// 准入结果常量
const (
	AdmissionAdmitted             AdmissionOutcome = "admitted"
	AdmissionDailyCapReached      AdmissionOutcome = "daily_cap_reached"
	AdmissionCumulativeCapReached AdmissionOutcome = "cumulative_cap_reached"
	AdmissionDenied               AdmissionOutcome = "denied"
)

// QualificationOutcome 推广注册达标处理结果
type QualificationOutcome string

// 达标结果常量
const (
	QualificationQualified QualificationOutcome = "qualified"
	QualificationDenied    QualificationOutcome = "denied"
)

// DenyReason 拒绝原因
type DenyReason string

// 拒绝原因常量
const (
	DenyReasonFraudRisk DenyReason = "fraud_risk"
)

// 推广点击幂等键来源
const (
	ClickIDSourceCookie = "cookie"
	ClickIDSourceHeader = "header"
	ClickIDSourceBody   = "body"
)

// 队列常量
const (
	QueueDefault             = "default"
	QueueCritical            = "critical"
	TaskAffiliateQualify     = "affiliate:qualify"
	TaskRiskObservationStore = "risk:observation_store"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "jg"
)

// 币种常量
const (
	CurrencyDefault = "USD"
)

// 推广注册审计动作
const (
	RegistrationActionCreated        = "created"
	RegistrationActionQualified      = "qualified"
	RegistrationActionRejected       = "rejected"
	RegistrationActionFraudDenied    = "fraud_denied"
	RegistrationActionPayoutResolved = "payout_resolved"
	RegistrationActionPayoutStatus   = "payout_status"
)
