package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	"github.com/google/uuid"
)

type GetPropertyUseCase struct {
	repo  port.PropertyRepositoryPort
	retry RetryPolicy
}

func NewGetPropertyUseCase(repo port.PropertyRepositoryPort, retry RetryPolicy) *GetPropertyUseCase {
	return &GetPropertyUseCase{repo: repo, retry: retry}
}

func (uc *GetPropertyUseCase) Execute(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "GetProperty",
		"property_id": propertyID.String(),
	})

	property, err := findProperty(ctx, uc.repo, uc.retry, logger, propertyID)
	if err != nil {
		return nil, err
	}
	logger.Debug("Property loaded", port.Fields{"status": string(property.Status)})
	return property, nil
}

// findProperty читает объявление с повторами и логирует всё, кроме "не найдено"
func findProperty(ctx context.Context, repo port.PropertyRepositoryPort, policy RetryPolicy, logger port.LoggerPort, id uuid.UUID) (*domain.Property, error) {
	property, err := withRetry(ctx, policy, logger, "property_repository.find_by_id", func() (*domain.Property, error) {
		return repo.FindByID(ctx, id)
	})
	if err != nil {
		if !isNotFound(err) {
			logger.Error("Repository failed to load property", err, nil)
		}
		return nil, err
	}
	return property, nil
}
