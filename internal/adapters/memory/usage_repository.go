package memory

import (
	"context"
	"time"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type UsageRepository struct {
	s *Store
}

func (r *UsageRepository) Record(ctx context.Context, event domain.UsageEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.properties[event.PropertyID]
	if !ok {
		return domain.ErrPropertyNotFound
	}
	switch event.Kind {
	case domain.UsageView:
		p.Views++
	case domain.UsageInquiry:
		p.Inquiries++
	default:
		return domain.NewValidationError("unknown usage kind", "kind")
	}
	r.s.events = append(r.s.events, event)
	return nil
}

func (r *UsageRepository) ListEvents(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]domain.UsageEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.UsageEvent
	for _, e := range r.s.events {
		if e.PropertyID != propertyID || e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
