package memory

import (
	"context"
	"time"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

// InboxNotification - доставленное уведомление во входящих пользователя
type InboxNotification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Type        domain.NotificationType
	Title       string
	Message     string
	Payload     map[string]any
	Read        bool
	CreatedAt   time.Time
}

// Inbox реализует NotificationDispatcherPort
type Inbox struct {
	s *Store
}

func (i *Inbox) Send(ctx context.Context, record domain.NotificationRecord) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()

	if _, exists := i.s.inbox[record.ID]; exists {
		return nil
	}
	i.s.inbox[record.ID] = InboxNotification{
		ID:          record.ID,
		RecipientID: record.RecipientID,
		Type:        record.Type,
		Title:       record.Title,
		Message:     record.Message,
		Payload:     record.Payload,
		CreatedAt:   time.Now().UTC(),
	}
	i.s.inboxOrder = append(i.s.inboxOrder, record.ID)
	return nil
}

// ForRecipient возвращает уведомления получателя в порядке доставки
func (i *Inbox) ForRecipient(recipientID uuid.UUID) []InboxNotification {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()

	var out []InboxNotification
	for _, id := range i.s.inboxOrder {
		if n := i.s.inbox[id]; n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}
