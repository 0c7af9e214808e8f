package port

import (
	"context"
	"listing-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

// UsageRepositoryPort - журнал просмотров и запросов.
type UsageRepositoryPort interface {
	// Record в одной транзакции добавляет событие и атомарно увеличивает
	// соответствующий счетчик объявления. domain.ErrPropertyNotFound, если объявления нет.
	Record(ctx context.Context, event domain.UsageEvent) error

	// ListEvents возвращает события объявления в полуинтервале [from, to).
	ListEvents(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]domain.UsageEvent, error)
}

// AnalyticsCachePort - необязательный кэш готовых сводок.
type AnalyticsCachePort interface {
	Get(ctx context.Context, propertyID uuid.UUID, window domain.AnalyticsWindow) (*domain.AnalyticsSummary, bool, error)
	Set(ctx context.Context, summary *domain.AnalyticsSummary) error
}
