package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type AttachMediaUseCasePort interface {
	// Execute возвращает ссылки успешно загруженных файлов в порядке входа.
	// Если часть файлов не загрузилась, вместе со ссылками возвращается *domain.MediaBatchError.
	Execute(ctx context.Context, propertyID uuid.UUID, kind domain.MediaKind, files []domain.MediaFile) ([]string, error)
}

type RemoveMediaUseCasePort interface {
	Execute(ctx context.Context, propertyID uuid.UUID, url string) error
}
