package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type CreatePropertyUseCasePort interface {
	// Execute возвращает созданное объявление. При частичном сбое загрузки медиа
	// объявление возвращается вместе с *domain.MediaBatchError.
	Execute(ctx context.Context, ownerID uuid.UUID, fields domain.PropertyFields, files []domain.MediaFile) (*domain.Property, error)
}
