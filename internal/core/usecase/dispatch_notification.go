package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	"github.com/google/uuid"
)

// DispatchNotificationUseCase вызывается циклом диспетчеризации для каждой записи из очереди.
// Повторы выполняет очередь, поэтому здесь одна попытка.
type DispatchNotificationUseCase struct {
	dispatcher port.NotificationDispatcherPort
	metrics    port.DispatchMetricsPort
}

func NewDispatchNotificationUseCase(dispatcher port.NotificationDispatcherPort, metrics port.DispatchMetricsPort) *DispatchNotificationUseCase {
	return &DispatchNotificationUseCase{dispatcher: dispatcher, metrics: metrics}
}

func (uc *DispatchNotificationUseCase) Execute(ctx context.Context, record domain.NotificationRecord) error {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":        "DispatchNotification",
		"notification_id": record.ID.String(),
		"recipient_id":    record.RecipientID.String(),
		"type":            string(record.Type),
	})

	if record.ID == uuid.Nil || record.RecipientID == uuid.Nil || record.Type == "" {
		return domain.NewValidationError("notification record is incomplete", "id", "recipient_id", "type")
	}

	err := uc.dispatcher.Send(ctx, record)
	if uc.metrics != nil {
		uc.metrics.NotificationDispatched(string(record.Type), err == nil)
	}
	if err != nil {
		ucLogger.Error("Dispatcher failed to deliver notification", err, nil)
		return err
	}

	ucLogger.Info("Notification delivered", nil)
	return nil
}
