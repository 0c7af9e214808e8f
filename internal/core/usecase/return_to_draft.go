package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

type ReturnToDraftUseCase struct {
	repo port.PropertyRepositoryPort
	now  func() time.Time
}

func NewReturnToDraftUseCase(repo port.PropertyRepositoryPort) *ReturnToDraftUseCase {
	return &ReturnToDraftUseCase{repo: repo, now: utcNow}
}

func (uc *ReturnToDraftUseCase) Execute(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "ReturnToDraft",
		"property_id": propertyID.String(),
	})

	ucLogger.Info("Use case started", nil)

	property, err := uc.repo.TransitionStatus(ctx, propertyID, domain.NewReturnToDraftTransition(uc.now()))
	if err != nil {
		logTransitionError(ucLogger, err)
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", nil)
	return property, nil
}
