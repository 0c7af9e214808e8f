package port

import (
	"context"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type ProfileRepositoryPort interface {
	// EnsureProfile вставляет профиль, если его еще нет (одна операция insert-if-absent).
	// Возвращает сохраненный профиль и признак того, что он был создан сейчас.
	EnsureProfile(ctx context.Context, profile domain.Profile) (*domain.Profile, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	FindByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
}
