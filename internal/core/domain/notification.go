package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType - тег типа уведомления
type NotificationType string

const (
	NotificationPropertySubmitted NotificationType = "property_submitted"
	NotificationPropertyVerified  NotificationType = "property_verified"
	NotificationPropertyRejected  NotificationType = "property_rejected"
	NotificationPropertyInquiry   NotificationType = "property_inquiry"
)

// NotificationRecord - намерение отправить уведомление во входящие получателя.
// ID нужен, чтобы повторная доставка из очереди не создавала дубликаты.
type NotificationRecord struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Type        NotificationType
	Title       string
	Message     string
	Payload     map[string]any
	RequestedAt time.Time
}

func newNotification(recipient uuid.UUID, t NotificationType, title, message string, payload map[string]any, now time.Time) NotificationRecord {
	return NotificationRecord{
		ID:          uuid.New(),
		RecipientID: recipient,
		Type:        t,
		Title:       title,
		Message:     message,
		Payload:     payload,
		RequestedAt: now,
	}
}

// NewSubmissionNotification - уведомление модератору о новом объявлении в очереди
func NewSubmissionNotification(reviewerID uuid.UUID, p *Property, now time.Time) NotificationRecord {
	return newNotification(
		reviewerID,
		NotificationPropertySubmitted,
		"New property awaiting verification",
		fmt.Sprintf("Property %q was submitted for verification.", p.Title),
		map[string]any{
			"property_id": p.ID.String(),
			"owner_id":    p.OwnerID.String(),
			"title":       p.Title,
			"category":    p.Category,
		},
		now,
	)
}

// NewDecisionNotification - уведомление владельцу об итоге модерации
func NewDecisionNotification(p *Property, entry VerificationHistoryEntry, now time.Time) NotificationRecord {
	payload := map[string]any{
		"property_id": p.ID.String(),
		"status":      string(entry.Status),
		"reviewer_id": entry.Reviewer.ID.String(),
	}
	if entry.Notes != "" {
		payload["notes"] = entry.Notes
	}

	if entry.Status == StatusRejected {
		payload["rejection_reason"] = entry.RejectionReason
		return newNotification(
			p.OwnerID,
			NotificationPropertyRejected,
			"Property verification rejected",
			fmt.Sprintf("Your property %q was rejected: %s", p.Title, entry.RejectionReason),
			payload,
			now,
		)
	}
	return newNotification(
		p.OwnerID,
		NotificationPropertyVerified,
		"Property verified",
		fmt.Sprintf("Your property %q has been verified and is now public.", p.Title),
		payload,
		now,
	)
}

// NewInquiryNotification - уведомление владельцу о новом запросе по объявлению
func NewInquiryNotification(p *Property, event UsageEvent, now time.Time) NotificationRecord {
	payload := map[string]any{
		"property_id": p.ID.String(),
		"event_id":    event.ID.String(),
	}
	if event.Inquiry != nil {
		payload["name"] = event.Inquiry.Name
		payload["email"] = event.Inquiry.Email
		payload["phone"] = event.Inquiry.Phone
	}
	return newNotification(
		p.OwnerID,
		NotificationPropertyInquiry,
		"New inquiry",
		fmt.Sprintf("You received a new inquiry about %q.", p.Title),
		payload,
		now,
	)
}
