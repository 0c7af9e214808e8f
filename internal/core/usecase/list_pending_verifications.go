package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
)

type ListPendingVerificationsUseCase struct {
	repo  port.PropertyRepositoryPort
	retry RetryPolicy
}

func NewListPendingVerificationsUseCase(repo port.PropertyRepositoryPort, retry RetryPolicy) *ListPendingVerificationsUseCase {
	return &ListPendingVerificationsUseCase{repo: repo, retry: retry}
}

func (uc *ListPendingVerificationsUseCase) Execute(ctx context.Context, page, pageSize int, filters domain.PendingFilters) (*domain.PendingPage, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ListPendingVerifications",
	})

	if err := validatePendingFilters(filters); err != nil {
		return nil, err
	}

	page, pageSize = domain.NormalizePage(page, pageSize)
	offset := (page - 1) * pageSize

	ucLogger.Info("Use case started", port.Fields{"page": page, "page_size": pageSize})

	type pendingResult struct {
		items []domain.Property
		total int
	}
	res, err := withRetry(ctx, uc.retry, ucLogger, "property_repository.find_pending", func() (pendingResult, error) {
		items, total, err := uc.repo.FindPending(ctx, filters, pageSize, offset)
		return pendingResult{items: items, total: total}, err
	})
	if err != nil {
		ucLogger.Error("Repository failed to list pending properties", err, nil)
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"total": res.total, "returned": len(res.items)})
	return domain.NewPendingPage(res.items, res.total, page, pageSize), nil
}

func validatePendingFilters(f domain.PendingFilters) error {
	var invalid []string
	if f.PriceMin != nil && *f.PriceMin < 0 {
		invalid = append(invalid, "price_min")
	}
	if f.PriceMax != nil && *f.PriceMax < 0 {
		invalid = append(invalid, "price_max")
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		invalid = append(invalid, "price_range")
	}
	if len(invalid) > 0 {
		return domain.NewValidationError("invalid filters", invalid...)
	}
	return nil
}
