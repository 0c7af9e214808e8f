package memory

import (
	"context"
	"sort"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type HistoryRepository struct {
	s *Store
}

// ListByProperty сортирует так же, как SQL-запрос: created_at DESC, id DESC
func (r *HistoryRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.VerificationHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []domain.VerificationHistoryEntry{}
	for _, e := range r.s.history {
		if e.PropertyID == propertyID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
	return out, nil
}
