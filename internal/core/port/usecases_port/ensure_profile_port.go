package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"
)

type EnsureProfileUseCasePort interface {
	Execute(ctx context.Context, profile domain.Profile) (*domain.Profile, bool, error)
}
