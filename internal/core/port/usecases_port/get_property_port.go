package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type GetPropertyUseCasePort interface {
	Execute(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error)
}
