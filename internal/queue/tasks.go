package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jobguard/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAffiliateQualify 推广注册达标处理任务
	TaskAffiliateQualify = constants.TaskAffiliateQualify
	// TaskRiskObservationStore 设备指纹观测落库任务
	TaskRiskObservationStore = constants.TaskRiskObservationStore
)

// AffiliateQualifyPayload 达标处理任务载荷
type AffiliateQualifyPayload struct {
	RegistrationID uint `json:"registration_id"`
}

// RiskObservationPayload 设备指纹观测任务载荷
type RiskObservationPayload struct {
	UserID          uint      `json:"user_id"`
	FingerprintHash string    `json:"fingerprint_hash"`
	IP              string    `json:"ip"`
	IsProxy         bool      `json:"is_proxy"`
	IsHosting       bool      `json:"is_hosting"`
	ObservedAt      time.Time `json:"observed_at"`
}

// NewAffiliateQualifyTask 创建达标处理任务
func NewAffiliateQualifyTask(payload AffiliateQualifyPayload) (*asynq.Task, error) {
	if payload.RegistrationID == 0 {
		return nil, fmt.Errorf("registration id is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAffiliateQualify, body), nil
}

// NewRiskObservationTask 创建观测落库任务
func NewRiskObservationTask(payload RiskObservationPayload) (*asynq.Task, error) {
	if payload.UserID == 0 {
		return nil, fmt.Errorf("user id is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRiskObservationStore, body), nil
}

// ParseAffiliateQualifyPayload 解析达标处理任务载荷
func ParseAffiliateQualifyPayload(task *asynq.Task) (AffiliateQualifyPayload, error) {
	var payload AffiliateQualifyPayload
	if task == nil {
		return payload, fmt.Errorf("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// ParseRiskObservationPayload 解析观测落库任务载荷
func ParseRiskObservationPayload(task *asynq.Task) (RiskObservationPayload, error) {
	var payload RiskObservationPayload
	if task == nil {
		return payload, fmt.Errorf("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
