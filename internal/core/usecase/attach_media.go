package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	"github.com/google/uuid"
)

type AttachMediaUseCase struct {
	repo  port.PropertyRepositoryPort
	media *MediaPipeline
	retry RetryPolicy
}

func NewAttachMediaUseCase(repo port.PropertyRepositoryPort, media *MediaPipeline, retry RetryPolicy) *AttachMediaUseCase {
	return &AttachMediaUseCase{repo: repo, media: media, retry: retry}
}

func (uc *AttachMediaUseCase) Execute(ctx context.Context, propertyID uuid.UUID, kind domain.MediaKind, files []domain.MediaFile) ([]string, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "AttachMedia",
		"property_id": propertyID.String(),
		"media_kind":  string(kind),
	})

	ucLogger.Info("Use case started", port.Fields{"files": len(files)})

	if _, err := domain.ParseMediaKind(string(kind)); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.NewValidationError("at least one file is required", "files")
	}

	if _, err := findProperty(ctx, uc.repo, uc.retry, ucLogger, propertyID); err != nil {
		return nil, err
	}

	urls, err := uc.media.Attach(ctx, propertyID, kind, files)
	if err != nil {
		return urls, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"uploaded": len(urls)})
	return urls, nil
}
