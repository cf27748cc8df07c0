package worker

import (
	"context"
	"errors"

	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/provider"
	"github.com/jobguard/internal/queue"
	"github.com/jobguard/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAffiliateQualify, c.handleAffiliateQualify)
	mux.HandleFunc(queue.TaskRiskObservationStore, c.handleRiskObservation)
}

func (c *Consumer) handleAffiliateQualify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_affiliate_qualify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseAffiliateQualifyPayload(task)
	if err != nil {
		logger.Warnw("worker_affiliate_qualify_unmarshal_failed", "error", err)
		return err
	}
	if payload.RegistrationID == 0 {
		logger.Debugw("worker_affiliate_qualify_skip_invalid_payload", "registration_id", payload.RegistrationID)
		return nil
	}
	if c.AttributionService == nil {
		logger.Warnw("worker_affiliate_qualify_skip_service_nil", "registration_id", payload.RegistrationID)
		return nil
	}
	result, err := c.AttributionService.Qualify(ctx, payload.RegistrationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRegistrationNotFound):
			logger.Debugw("worker_affiliate_qualify_skip_not_found", "registration_id", payload.RegistrationID)
			return nil
		case errors.Is(err, service.ErrRegistrationStatusInvalid), errors.Is(err, service.ErrOfferNotFound):
			logger.Debugw("worker_affiliate_qualify_skip_invalid_status", "registration_id", payload.RegistrationID, "error", err)
			return nil
		default:
			logger.Warnw("worker_affiliate_qualify_failed", "registration_id", payload.RegistrationID, "error", err)
			return err
		}
	}
	logger.Debugw("worker_affiliate_qualify_done",
		"registration_id", payload.RegistrationID,
		"outcome", result.Outcome,
		"already_qualified", result.AlreadyQualified,
	)
	return nil
}

func (c *Consumer) handleRiskObservation(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil {
		logger.Debugw("worker_risk_observation_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseRiskObservationPayload(task)
	if err != nil {
		logger.Warnw("worker_risk_observation_unmarshal_failed", "error", err)
		return err
	}
	if c.RiskService == nil {
		logger.Warnw("worker_risk_observation_skip_service_nil", "user_id", payload.UserID)
		return nil
	}
	err = c.RiskService.Record(ctx, service.RiskObservationInput{
		UserID:          payload.UserID,
		FingerprintHash: payload.FingerprintHash,
		IP:              payload.IP,
		IsProxy:         payload.IsProxy,
		IsHosting:       payload.IsHosting,
		ObservedAt:      payload.ObservedAt,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			logger.Debugw("worker_risk_observation_skip_invalid_payload", "user_id", payload.UserID)
			return nil
		}
		logger.Warnw("worker_risk_observation_failed", "user_id", payload.UserID, "error", err)
		return err
	}
	return nil
}
