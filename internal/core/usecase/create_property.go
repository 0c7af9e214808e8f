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

type CreatePropertyUseCase struct {
	repo  port.PropertyRepositoryPort
	media *MediaPipeline
	now   func() time.Time
}

func NewCreatePropertyUseCase(repo port.PropertyRepositoryPort, media *MediaPipeline) *CreatePropertyUseCase {
	return &CreatePropertyUseCase{
		repo:  repo,
		media: media,
		now:   utcNow,
	}
}

func (uc *CreatePropertyUseCase) Execute(ctx context.Context, ownerID uuid.UUID, fields domain.PropertyFields, files []domain.MediaFile) (*domain.Property, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "CreateProperty",
		"owner_id": ownerID.String(),
	})

	ucLogger.Info("Use case started", port.Fields{"files": len(files)})

	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner id is required", "owner_id")
	}
	if err := fields.Validate(); err != nil {
		ucLogger.Warn("Invalid property fields", port.Fields{"error": err.Error()})
		return nil, err
	}

	property := domain.NewProperty(ownerID, fields, uc.now())
	if err := uc.repo.Create(ctx, property); err != nil {
		ucLogger.Error("Repository failed to create property", err, nil)
		return nil, err
	}

	ucLogger = ucLogger.WithFields(port.Fields{"property_id": property.ID.String()})

	if len(files) > 0 && uc.media != nil {
		urls, err := uc.media.Attach(ctx, property.ID, domain.MediaImages, files)
		property.Images = append(property.Images, urls...)

		var batchErr *domain.MediaBatchError
		if errors.As(err, &batchErr) {
			ucLogger.Warn("Property created, some media failed", port.Fields{"failed": len(batchErr.Failures)})
			return property, err
		}
		if err != nil {
			ucLogger.Error("Property created, media could not be attached", err, nil)
			return property, err
		}
	}

	ucLogger.Info("Use case finished successfully", nil)
	return property, nil
}
