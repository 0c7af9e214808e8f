package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	"github.com/google/uuid"
)

type GetVerificationHistoryUseCase struct {
	repo    port.PropertyRepositoryPort
	history port.VerificationHistoryPort
	retry   RetryPolicy
}

func NewGetVerificationHistoryUseCase(repo port.PropertyRepositoryPort, history port.VerificationHistoryPort, retry RetryPolicy) *GetVerificationHistoryUseCase {
	return &GetVerificationHistoryUseCase{repo: repo, history: history, retry: retry}
}

// Execute возвращает журнал решений от новых к старым
func (uc *GetVerificationHistoryUseCase) Execute(ctx context.Context, propertyID uuid.UUID) ([]domain.VerificationHistoryEntry, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "GetVerificationHistory",
		"property_id": propertyID.String(),
	})

	if _, err := findProperty(ctx, uc.repo, uc.retry, ucLogger, propertyID); err != nil {
		return nil, err
	}

	entries, err := withRetry(ctx, uc.retry, ucLogger, "verification_history.list", func() ([]domain.VerificationHistoryEntry, error) {
		return uc.history.ListByProperty(ctx, propertyID)
	})
	if err != nil {
		ucLogger.Error("Repository failed to load verification history", err, nil)
		return nil, err
	}
	if entries == nil {
		entries = []domain.VerificationHistoryEntry{}
	}
	return entries, nil
}
