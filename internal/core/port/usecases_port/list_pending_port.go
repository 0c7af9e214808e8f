package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"
)

type ListPendingVerificationsUseCasePort interface {
	Execute(ctx context.Context, page, pageSize int, filters domain.PendingFilters) (*domain.PendingPage, error)
}
