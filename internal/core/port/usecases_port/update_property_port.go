package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type UpdatePropertyUseCasePort interface {
	Execute(ctx context.Context, propertyID uuid.UUID, patch domain.PropertyPatch) (*domain.Property, error)
}
