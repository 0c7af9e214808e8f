package usecase

import (
	"context"
	"errors"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

type DecideVerificationUseCase struct {
	repo  port.PropertyRepositoryPort
	queue port.NotificationQueuePort
	retry RetryPolicy
	now   func() time.Time
}

func NewDecideVerificationUseCase(
	repo port.PropertyRepositoryPort,
	queue port.NotificationQueuePort,
	retry RetryPolicy,
) *DecideVerificationUseCase {
	return &DecideVerificationUseCase{
		repo:  repo,
		queue: queue,
		retry: retry,
		now:   utcNow,
	}
}

// Execute: условная смена статуса вместе с записью в журнал (одна транзакция),
// затем уведомление владельца. Из двух одновременных решений проходит ровно одно,
// второе получает ConflictError. Если запись в журнал не удалась, статус не меняется
// и решение можно повторить.
func (uc *DecideVerificationUseCase) Execute(ctx context.Context, propertyID uuid.UUID, input domain.DecisionInput) (*domain.DecisionResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":    "DecideVerification",
		"property_id": propertyID.String(),
		"decision":    string(input.Decision),
		"reviewer_id": input.Reviewer.ID.String(),
	})

	ucLogger.Info("Use case started", nil)

	if err := input.Validate(); err != nil {
		ucLogger.Warn("Invalid decision", port.Fields{"error": err.Error()})
		return nil, err
	}

	now := uc.now()
	property, entry, err := uc.repo.TransitionWithHistory(ctx, propertyID, domain.NewDecisionTransition(input, now))
	if err != nil {
		logTransitionError(ucLogger, err)
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) && conflict.Actual.IsDecided() {
			return nil, &domain.ConflictError{
				Message:  "property has already been reviewed",
				Expected: conflict.Expected,
				Actual:   conflict.Actual,
			}
		}
		return nil, err
	}

	result := &domain.DecisionResult{Property: property, History: *entry}

	record := domain.NewDecisionNotification(property, *entry, now)
	err = withRetryErr(ctx, uc.retry, ucLogger, "notification_queue.enqueue", func() error {
		return uc.queue.Enqueue(ctx, record)
	})
	if err != nil {
		ucLogger.Error("Failed to enqueue owner notification", err, nil)
		result.SideChannelErrs = append(result.SideChannelErrs, sideChannelFailure(channelNotify, property.OwnerID.String(), err))
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"status": string(property.Status)})
	return result, nil
}
