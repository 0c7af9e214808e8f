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

type UpdatePropertyUseCase struct {
	repo  port.PropertyRepositoryPort
	retry RetryPolicy
	now   func() time.Time
}

func NewUpdatePropertyUseCase(repo port.PropertyRepositoryPort, retry RetryPolicy) *UpdatePropertyUseCase {
	return &UpdatePropertyUseCase{repo: repo, retry: retry, now: utcNow}
}

// Execute сливает патч в объявление. Редактировать можно только черновик или объявление
// на проверке, статус при этом не меняется. Проверенное и отклоненное объявления дают
// ConflictError, отклоненное сначала возвращается в черновик через ReturnToDraft.
func (uc *UpdatePropertyUseCase) Execute(ctx context.Context, propertyID uuid.UUID, patch domain.PropertyPatch) (*domain.Property, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":    "UpdateProperty",
		"property_id": propertyID.String(),
	})

	ucLogger.Info("Use case started", nil)

	if patch.IsEmpty() {
		return nil, domain.NewValidationError("patch contains no fields")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	property, err := findProperty(ctx, uc.repo, uc.retry, ucLogger, propertyID)
	if err != nil {
		return nil, err
	}

	if !property.Status.IsEditable() {
		ucLogger.Warn("Property cannot be edited in current status", port.Fields{"status": string(property.Status)})
		return nil, domain.NewEditConflict(property.Status)
	}

	property.ApplyPatch(patch, uc.now())
	if err := property.CheckInvariants(); err != nil {
		ucLogger.Warn("Patch result violates property invariants", port.Fields{"error": err.Error()})
		return nil, err
	}

	// Статус мог смениться после чтения, условие повторяется в самой записи
	if err := uc.repo.Update(ctx, property); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			ucLogger.Warn("Update rejected by status guard", port.Fields{"error": err.Error()})
		} else {
			ucLogger.Error("Repository failed to update property", err, nil)
		}
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", nil)
	return property, nil
}
