package shared

import (
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/service"
)

// StorageErrorRules 存储层可重试错误
var StorageErrorRules = []MappedError{
	{Target: service.ErrStorageContention, Code: response.CodeUnavailable, Key: "error.storage_contention"},
	{Target: service.ErrStorageUnavailable, Code: response.CodeUnavailable, Key: "error.storage_unavailable"},
}

// AttributionErrorRules 推广归因业务错误
var AttributionErrorRules = []MappedError{
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},
	{Target: service.ErrLinkNotFound, Code: response.CodeNotFound, Key: "error.link_not_found"},
	{Target: service.ErrLinkInactive, Code: response.CodeBadRequest, Key: "error.link_inactive"},
	{Target: service.ErrRoleInvalid, Code: response.CodeBadRequest, Key: "error.role_invalid"},
	{Target: service.ErrSelfReferral, Code: response.CodeBadRequest, Key: "error.self_referral"},
	{Target: service.ErrOfferNotFound, Code: response.CodeNotFound, Key: "error.offer_not_found"},
	{Target: service.ErrOfferInvalid, Code: response.CodeBadRequest, Key: "error.offer_invalid"},
	{Target: service.ErrRegistrationNotFound, Code: response.CodeNotFound, Key: "error.registration_not_found"},
	{Target: service.ErrRegistrationStatusInvalid, Code: response.CodeConflict, Key: "error.registration_status"},
	{Target: service.ErrPayoutStatusInvalid, Code: response.CodeConflict, Key: "error.payout_status_invalid"},
	{Target: service.ErrPayoutAmountInvalid, Code: response.CodeBadRequest, Key: "error.payout_amount_invalid"},
	{Target: service.ErrLinkCodeExhausted, Code: response.CodeInternal, Key: "error.link_code_exhausted"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrUserDisabled, Code: response.CodeForbidden, Key: "error.user_disabled"},
}

// ServiceErrorRules 通用业务错误规则（业务错误优先于存储错误）
var ServiceErrorRules = ConcatMappedErrors(AttributionErrorRules, StorageErrorRules)
