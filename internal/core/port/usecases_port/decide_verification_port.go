package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type DecideVerificationUseCasePort interface {
	Execute(ctx context.Context, propertyID uuid.UUID, input domain.DecisionInput) (*domain.DecisionResult, error)
}
