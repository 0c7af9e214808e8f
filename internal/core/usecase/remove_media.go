package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

type RemoveMediaUseCase struct {
	repo    port.PropertyRepositoryPort
	storage port.ObjectStoragePort
	retry   RetryPolicy
	now     func() time.Time
}

func NewRemoveMediaUseCase(repo port.PropertyRepositoryPort, storage port.ObjectStoragePort, retry RetryPolicy) *RemoveMediaUseCase {
	return &RemoveMediaUseCase{repo: repo, storage: storage, retry: retry, now: utcNow}
}

// Execute сначала удаляет объект из хранилища. Если это не удалось,
// ссылка остается в объявлении.
func (uc *RemoveMediaUseCase) Execute(ctx context.Context, propertyID uuid.UUID, url string) error {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "RemoveMedia",
		"property_id": propertyID.String(),
		"url":         url,
	})

	ucLogger.Info("Use case started", nil)

	property, err := findProperty(ctx, uc.repo, uc.retry, ucLogger, propertyID)
	if err != nil {
		return err
	}

	kind, ok := property.HasMedia(url)
	if !ok {
		ucLogger.Warn("Url does not belong to property", nil)
		return domain.ErrMediaNotFound
	}

	key, err := uc.storage.KeyFromURL(url)
	if err != nil {
		ucLogger.Error("Could not derive object key from url", err, nil)
		return domain.NewStorageError("key_from_url", err)
	}

	err = withRetryErr(ctx, uc.retry, ucLogger, "object_storage.delete", func() error {
		return uc.storage.Delete(ctx, key)
	})
	if err != nil {
		ucLogger.Error("Object storage failed to delete blob", err, port.Fields{"key": key})
		return err
	}

	if err := uc.repo.RemoveMedia(ctx, propertyID, kind, url, uc.now()); err != nil {
		ucLogger.Error("Blob deleted but url could not be removed from property", err, nil)
		return err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"media_kind": string(kind)})
	return nil
}
