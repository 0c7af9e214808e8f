package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

type GetPropertyAnalyticsUseCase struct {
	repo  port.PropertyRepositoryPort
	usage port.UsageRepositoryPort
	// cache может быть nil
	cache port.AnalyticsCachePort
	retry RetryPolicy
	now   func() time.Time
}

func NewGetPropertyAnalyticsUseCase(repo port.PropertyRepositoryPort, usage port.UsageRepositoryPort, cache port.AnalyticsCachePort, retry RetryPolicy) *GetPropertyAnalyticsUseCase {
	return &GetPropertyAnalyticsUseCase{repo: repo, usage: usage, cache: cache, retry: retry, now: utcNow}
}

// Execute строит сводку только из журнала событий, счетчики объявления не используются
func (uc *GetPropertyAnalyticsUseCase) Execute(ctx context.Context, propertyID uuid.UUID, window domain.AnalyticsWindow) (*domain.AnalyticsSummary, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "GetPropertyAnalytics",
		"property_id": propertyID.String(),
		"window":      string(window),
	})

	window, err := domain.ParseAnalyticsWindow(string(window))
	if err != nil {
		return nil, err
	}

	if _, err := findProperty(ctx, uc.repo, uc.retry, ucLogger, propertyID); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		cached, ok, err := uc.cache.Get(ctx, propertyID, window)
		if err != nil {
			ucLogger.Warn("Analytics cache read failed", port.Fields{"error": err.Error()})
		} else if ok {
			ucLogger.Debug("Analytics served from cache", nil)
			return cached, nil
		}
	}

	now := uc.now()
	from, to := window.Bounds(now)
	events, err := withRetry(ctx, uc.retry, ucLogger, "usage_repository.list_events", func() ([]domain.UsageEvent, error) {
		return uc.usage.ListEvents(ctx, propertyID, from, to)
	})
	if err != nil {
		ucLogger.Error("Repository failed to load usage events", err, nil)
		return nil, err
	}

	summary := domain.BuildAnalytics(propertyID, events, window, now)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, summary); err != nil {
			ucLogger.Warn("Analytics cache write failed", port.Fields{"error": err.Error()})
		}
	}

	ucLogger.Info("Analytics computed", port.Fields{"events": len(events)})
	return summary, nil
}
