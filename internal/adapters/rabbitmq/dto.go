package rabbitmq

import (
	"listing-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

// NotificationRequestedDTO - тело события NotificationRequestedEvent v1,
// соответствует schemas/events/notification-requested/v1.json
type NotificationRequestedDTO struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	RecipientID    uuid.UUID      `json:"recipient_id"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Payload        map[string]any `json:"payload"`
	RequestedAt    time.Time      `json:"requested_at"`
}

func toNotificationDTO(r domain.NotificationRecord) NotificationRequestedDTO {
	payload := r.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return NotificationRequestedDTO{
		NotificationID: r.ID,
		RecipientID:    r.RecipientID,
		Type:           string(r.Type),
		Title:          r.Title,
		Message:        r.Message,
		Payload:        payload,
		RequestedAt:    r.RequestedAt.UTC(),
	}
}

func (d NotificationRequestedDTO) toDomain() domain.NotificationRecord {
	return domain.NotificationRecord{
		ID:          d.NotificationID,
		RecipientID: d.RecipientID,
		Type:        domain.NotificationType(d.Type),
		Title:       d.Title,
		Message:     d.Message,
		Payload:     d.Payload,
		RequestedAt: d.RequestedAt,
	}
}
