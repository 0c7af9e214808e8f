package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type PropertyRepository struct {
	s *Store
}

func (r *PropertyRepository) Create(ctx context.Context, property *domain.Property) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.properties[property.ID]; exists {
		return domain.NewPersistenceError("create property", fmt.Errorf("duplicate id %s", property.ID))
	}
	r.s.properties[property.ID] = cloneProperty(property)
	return nil
}

func (r *PropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.properties[id]
	if !ok {
		return nil, domain.ErrPropertyNotFound
	}
	return cloneProperty(p), nil
}

func (r *PropertyRepository) Update(ctx context.Context, property *domain.Property) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.properties[property.ID]
	if !ok {
		return domain.ErrPropertyNotFound
	}
	if !stored.Status.IsEditable() {
		return domain.NewEditConflict(stored.Status)
	}
	src := cloneProperty(property)
	stored.Title = src.Title
	stored.Description = src.Description
	stored.Price = src.Price
	stored.Location = src.Location
	stored.Category = src.Category
	stored.Bedrooms = src.Bedrooms
	stored.Bathrooms = src.Bathrooms
	stored.Area = src.Area
	stored.Amenities = src.Amenities
	stored.Coordinates = src.Coordinates
	stored.Geohash = src.Geohash
	stored.UpdatedAt = src.UpdatedAt
	return nil
}

func (r *PropertyRepository) TransitionStatus(ctx context.Context, id uuid.UUID, t domain.StatusTransition) (*domain.Property, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.properties[id]
	if !ok {
		return nil, domain.ErrPropertyNotFound
	}
	if stored.Status != t.From {
		return nil, domain.NewStatusConflict(t.From, stored.Status)
	}
	stored.Apply(t)
	return cloneProperty(stored), nil
}

func (r *PropertyRepository) TransitionWithHistory(ctx context.Context, id uuid.UUID, t domain.StatusTransition) (*domain.Property, *domain.VerificationHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.properties[id]
	if !ok {
		return nil, nil, domain.ErrPropertyNotFound
	}
	if stored.Status != t.From {
		return nil, nil, domain.NewStatusConflict(t.From, stored.Status)
	}

	// Переход применяется к копии и фиксируется только после записи в журнал
	next := cloneProperty(stored)
	next.Apply(t)
	entry := domain.NewHistoryEntry(next)
	if r.s.HistoryHook != nil {
		if err := r.s.HistoryHook(entry); err != nil {
			return nil, nil, domain.NewPersistenceError("append history", err)
		}
	}

	r.s.properties[id] = next
	r.s.history = append(r.s.history, entry)
	return cloneProperty(next), &entry, nil
}

func (r *PropertyRepository) AppendMedia(ctx context.Context, id uuid.UUID, kind domain.MediaKind, urls []string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.properties[id]
	if !ok {
		return domain.ErrPropertyNotFound
	}
	if kind == domain.MediaDocuments {
		stored.Documents = append(stored.Documents, urls...)
	} else {
		stored.Images = append(stored.Images, urls...)
	}
	stored.UpdatedAt = at
	return nil
}

func (r *PropertyRepository) RemoveMedia(ctx context.Context, id uuid.UUID, kind domain.MediaKind, url string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.properties[id]
	if !ok {
		return domain.ErrPropertyNotFound
	}
	if kind == domain.MediaDocuments {
		stored.Documents = without(stored.Documents, url)
	} else {
		stored.Images = without(stored.Images, url)
	}
	stored.UpdatedAt = at
	return nil
}

func without(list []string, url string) []string {
	out := list[:0]
	for _, u := range list {
		if u != url {
			out = append(out, u)
		}
	}
	return out
}

func (r *PropertyRepository) FindPending(ctx context.Context, filters domain.PendingFilters, limit, offset int) ([]domain.Property, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*domain.Property
	for _, p := range r.s.properties {
		if p.Status != domain.StatusPendingVerification || !matchesPending(p, filters) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		at, bt := submittedAt(a), submittedAt(b)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.ID.String() < b.ID.String()
	})

	total := len(matched)
	if offset >= total {
		return []domain.Property{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	items := make([]domain.Property, 0, end-offset)
	for _, p := range matched[offset:end] {
		items = append(items, *cloneProperty(p))
	}
	return items, total, nil
}

func submittedAt(p *domain.Property) time.Time {
	if p.SubmittedAt != nil {
		return *p.SubmittedAt
	}
	return p.CreatedAt
}

func matchesPending(p *domain.Property, f domain.PendingFilters) bool {
	if f.OwnerID != nil && p.OwnerID != *f.OwnerID {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.PriceMin != nil && (p.Price == nil || *p.Price < *f.PriceMin) {
		return false
	}
	if f.PriceMax != nil && (p.Price == nil || *p.Price > *f.PriceMax) {
		return false
	}
	return true
}
