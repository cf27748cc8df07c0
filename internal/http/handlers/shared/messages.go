package shared

var messages = map[string]string{
	"error.bad_request":               "invalid request",
	"error.unauthorized":              "unauthorized",
	"error.forbidden":                 "forbidden",
	"error.authz_unavailable":         "authorization temporarily unavailable",
	"error.not_found":                 "not found",
	"error.too_many_requests":         "too many requests",
	"error.internal":                  "internal error",
	"error.storage_unavailable":       "storage temporarily unavailable",
	"error.storage_contention":        "storage busy, please retry",
	"error.user_id_invalid":           "invalid user id",
	"error.user_id_type_invalid":      "invalid user id type",
	"error.admin_id_invalid":          "invalid admin id",
	"error.admin_id_type_invalid":     "invalid admin id type",
	"error.user_not_found":            "user not found",
	"error.user_disabled":             "user disabled",
	"error.link_not_found":            "link not found",
	"error.link_inactive":             "link inactive",
	"error.role_invalid":              "invalid role",
	"error.self_referral":             "self referral not allowed",
	"error.offer_not_found":           "offer not found",
	"error.offer_invalid":             "invalid offer",
	"error.registration_not_found":    "registration not found",
	"error.registration_status":       "registration status does not allow this action",
	"error.payout_status_invalid":     "invalid payout status transition",
	"error.payout_amount_invalid":     "invalid payout amount",
	"error.link_code_exhausted":       "link code generation failed",
	"error.request_rejected":          "request rejected",
	"error.save_failed":               "save failed",
	"error.fetch_failed":              "fetch failed",
	"error.quota_admit_failed":        "quota admission failed",
	"error.attribution_failed":        "attribution failed",
	"error.click_record_failed":       "click record failed",
	"error.risk_record_failed":        "risk observation failed",
	"error.dashboard_fetch_failed":    "dashboard fetch failed",
	"error.queue_unavailable":         "queue unavailable",
	"error.invalid_time_range":        "invalid time range",
	"error.click_id_missing":          "click id missing",
	"error.rate_limit_click":          "too many clicks, please retry later",
	"error.rate_limit_unavailable":    "rate limiter unavailable",
	"error.token_invalid":             "invalid token",
	"error.token_expired":             "token expired",
	"error.token_missing":             "token missing",
	"error.registration_fetch_failed": "registration fetch failed",
}

// Message 返回消息键对应的文案，未登记时原样返回键。
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}
