// Package memory - хранилище в памяти процесса. Используется в тестах и
// при STORAGE_DRIVER=memory для локального запуска без PostgreSQL.
package memory

import (
	"sync"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

// Store - общее состояние всех репозиториев. Один мьютекс на всё хранилище
// дает те же гарантии, что и транзакции в PostgreSQL.
//
// HistoryHook вызывается перед записью в журнал внутри перехода. Ошибка хука
// откатывает весь переход, как откат транзакции.
type Store struct {
	HistoryHook func(entry domain.VerificationHistoryEntry) error

	mu         sync.Mutex
	properties map[uuid.UUID]*domain.Property
	history    []domain.VerificationHistoryEntry
	events     []domain.UsageEvent
	profiles   map[uuid.UUID]*domain.Profile
	inbox      map[uuid.UUID]InboxNotification
	inboxOrder []uuid.UUID
}

func NewStore() *Store {
	return &Store{
		properties: make(map[uuid.UUID]*domain.Property),
		profiles:   make(map[uuid.UUID]*domain.Profile),
		inbox:      make(map[uuid.UUID]InboxNotification),
	}
}

func (s *Store) Properties() *PropertyRepository { return &PropertyRepository{s: s} }
func (s *Store) History() *HistoryRepository { return &HistoryRepository{s: s} }
func (s *Store) Usage() *UsageRepository { return &UsageRepository{s: s} }
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s: s} }
func (s *Store) Inbox() *Inbox { return &Inbox{s: s} }

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneProperty(p *domain.Property) *domain.Property {
	c := *p
	c.Images = cloneStrings(p.Images)
	c.Documents = cloneStrings(p.Documents)
	c.Amenities = cloneStrings(p.Amenities)
	if p.Price != nil {
		v := *p.Price
		c.Price = &v
	}
	if p.Bedrooms != nil {
		v := *p.Bedrooms
		c.Bedrooms = &v
	}
	if p.Bathrooms != nil {
		v := *p.Bathrooms
		c.Bathrooms = &v
	}
	if p.Area != nil {
		v := *p.Area
		c.Area = &v
	}
	if p.Coordinates != nil {
		v := *p.Coordinates
		c.Coordinates = &v
	}
	if p.VerifiedBy != nil {
		v := *p.VerifiedBy
		c.VerifiedBy = &v
	}
	if p.VerifiedAt != nil {
		v := *p.VerifiedAt
		c.VerifiedAt = &v
	}
	if p.SubmittedAt != nil {
		v := *p.SubmittedAt
		c.SubmittedAt = &v
	}
	return &c
}
