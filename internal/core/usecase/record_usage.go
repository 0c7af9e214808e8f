package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

type RecordViewUseCase struct {
	usage port.UsageRepositoryPort
	now   func() time.Time
}

func NewRecordViewUseCase(usage port.UsageRepositoryPort) *RecordViewUseCase {
	return &RecordViewUseCase{usage: usage, now: utcNow}
}

// Execute не повторяется при сбое: повтор мог бы посчитать просмотр дважды
func (uc *RecordViewUseCase) Execute(ctx context.Context, propertyID uuid.UUID, actorID *uuid.UUID) error {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "RecordView",
		"property_id": propertyID.String(),
	})

	event := domain.NewViewEvent(propertyID, actorID, uc.now())
	if err := uc.usage.Record(ctx, event); err != nil {
		if !isNotFound(err) {
			ucLogger.Error("Repository failed to record view", err, nil)
		}
		return err
	}

	ucLogger.Debug("View recorded", nil)
	return nil
}

type RecordInquiryUseCase struct {
	usage port.UsageRepositoryPort
	repo  port.PropertyRepositoryPort
	queue port.NotificationQueuePort
	retry RetryPolicy
	now   func() time.Time
}

func NewRecordInquiryUseCase(usage port.UsageRepositoryPort, repo port.PropertyRepositoryPort, queue port.NotificationQueuePort, retry RetryPolicy) *RecordInquiryUseCase {
	return &RecordInquiryUseCase{usage: usage, repo: repo, queue: queue, retry: retry, now: utcNow}
}

func (uc *RecordInquiryUseCase) Execute(ctx context.Context, propertyID uuid.UUID, actorID *uuid.UUID, payload domain.InquiryPayload) ([]domain.SideChannelFailure, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "RecordInquiry",
		"property_id": propertyID.String(),
	})

	ucLogger.Info("Use case started", nil)

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	event := domain.NewInquiryEvent(propertyID, actorID, payload, uc.now())
	if err := uc.usage.Record(ctx, event); err != nil {
		if !isNotFound(err) {
			ucLogger.Error("Repository failed to record inquiry", err, nil)
		}
		return nil, err
	}

	// Уведомление владельца не влияет на результат
	property, err := findProperty(ctx, uc.repo, uc.retry, ucLogger, propertyID)
	if err != nil {
		return []domain.SideChannelFailure{sideChannelFailure(channelNotify, "", err)}, nil
	}

	record := domain.NewInquiryNotification(property, event, uc.now())
	err = withRetryErr(ctx, uc.retry, ucLogger, "notification_queue.enqueue", func() error {
		return uc.queue.Enqueue(ctx, record)
	})
	if err != nil {
		ucLogger.Error("Failed to enqueue inquiry notification", err, nil)
		return []domain.SideChannelFailure{sideChannelFailure(channelNotify, property.OwnerID.String(), err)}, nil
	}

	ucLogger.Info("Use case finished successfully", nil)
	return nil, nil
}
