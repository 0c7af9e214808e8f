package memory

import (
	"context"
	"sort"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type ProfileRepository struct {
	s *Store
}

func (r *ProfileRepository) EnsureProfile(ctx context.Context, profile domain.Profile) (*domain.Profile, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.profiles[profile.ID]; ok {
		// роль из заголовка авторитетна, остальные поля остаются от первого запроса
		existing.Role = profile.Role
		p := *existing
		return &p, false, nil
	}
	stored := profile
	r.s.profiles[profile.ID] = &stored
	p := stored
	return &p, true, nil
}

func (r *ProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	out := *p
	return &out, nil
}

func (r *ProfileRepository) FindByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []domain.Profile{}
	for _, p := range r.s.profiles {
		if p.Role == role {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}
