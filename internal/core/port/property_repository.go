package port

import (
	"context"
	"listing-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

// PropertyRepositoryPort - контракт хранилища объявлений.
type PropertyRepositoryPort interface {
	Create(ctx context.Context, property *domain.Property) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Property, error)

	// Update сохраняет редактируемые владельцем поля. Статус и поля модерации не трогает.
	// Запись условная: WHERE status IN (domain.EditableStatuses). Если строк не затронуто,
	// возвращается domain.ErrPropertyNotFound или *domain.ConflictError с фактическим статусом.
	Update(ctx context.Context, property *domain.Property) error

	// TransitionStatus - единственная точка смены статуса. Запись выполняется одним
	// условным UPDATE ... WHERE status = t.From. Если строк не затронуто, возвращается
	// domain.ErrPropertyNotFound или *domain.ConflictError с фактическим статусом.
	TransitionStatus(ctx context.Context, id uuid.UUID, t domain.StatusTransition) (*domain.Property, error)

	// TransitionWithHistory - тот же переход и запись журнала (domain.NewHistoryEntry)
	// в одной транзакции. Либо сохраняются обе записи, либо ни одна.
	TransitionWithHistory(ctx context.Context, id uuid.UUID, t domain.StatusTransition) (*domain.Property, *domain.VerificationHistoryEntry, error)

	// AppendMedia и RemoveMedia меняют список атомарно на стороне хранилища.
	AppendMedia(ctx context.Context, id uuid.UUID, kind domain.MediaKind, urls []string, at time.Time) error
	RemoveMedia(ctx context.Context, id uuid.UUID, kind domain.MediaKind, url string, at time.Time) error

	FindPending(ctx context.Context, filters domain.PendingFilters, limit, offset int) ([]domain.Property, int, error)
}

// VerificationHistoryPort - чтение журнала решений модерации. Записи добавляет
// только PropertyRepositoryPort.TransitionWithHistory.
type VerificationHistoryPort interface {
	// ListByProperty возвращает записи от новых к старым.
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.VerificationHistoryEntry, error)
}
