package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Decision - решение модератора
type Decision string

const (
	DecisionVerified Decision = "verified"
	DecisionRejected Decision = "rejected"
)

func (d Decision) Status() PropertyStatus {
	return PropertyStatus(d)
}

// DecisionInput - всё, что нужно для decideVerification
type DecisionInput struct {
	Decision        Decision
	Notes           string
	RejectionReason string
	Reviewer        ReviewerSnapshot
}

// Validate выполняется до любой записи
func (in DecisionInput) Validate() error {
	if in.Decision != DecisionVerified && in.Decision != DecisionRejected {
		return NewValidationError("decision must be 'verified' or 'rejected'", "decision")
	}
	if in.Reviewer.ID == uuid.Nil {
		return NewValidationError("reviewer identity is required", "reviewer")
	}
	if in.Decision == DecisionRejected && strings.TrimSpace(in.RejectionReason) == "" {
		return NewValidationError("rejection reason is required when rejecting", "rejection_reason")
	}
	return nil
}

// StatusTransition описывает условную запись статуса: она применяется только если
// текущий статус в хранилище равен From. Поля модерации записываются целиком.
type StatusTransition struct {
	From PropertyStatus
	To   PropertyStatus

	VerificationNotes string
	VerifiedBy        *ReviewerSnapshot
	VerifiedAt        *time.Time
	RejectionReason   string
	// SubmittedAt == nil оставляет текущее значение
	SubmittedAt *time.Time

	At time.Time
}

func NewSubmitTransition(now time.Time) StatusTransition {
	return StatusTransition{
		From:        StatusDraft,
		To:          StatusPendingVerification,
		SubmittedAt: &now,
		At:          now,
	}
}

func NewDecisionTransition(in DecisionInput, now time.Time) StatusTransition {
	reviewer := in.Reviewer
	t := StatusTransition{
		From:              StatusPendingVerification,
		To:                in.Decision.Status(),
		VerificationNotes: in.Notes,
		VerifiedBy:        &reviewer,
		VerifiedAt:        &now,
		At:                now,
	}
	if in.Decision == DecisionRejected {
		t.RejectionReason = strings.TrimSpace(in.RejectionReason)
	}
	return t
}

// NewReturnToDraftTransition - владелец возвращает отклоненное объявление в черновик,
// чтобы пройти новый цикл проверки.
func NewReturnToDraftTransition(now time.Time) StatusTransition {
	return StatusTransition{
		From: StatusRejected,
		To:   StatusDraft,
		At:   now,
	}
}

// Apply применяет переход к объекту в памяти. Проверку From выполняет хранилище.
func (p *Property) Apply(t StatusTransition) {
	p.Status = t.To
	p.VerificationNotes = t.VerificationNotes
	p.VerifiedBy = t.VerifiedBy
	p.VerifiedAt = t.VerifiedAt
	p.RejectionReason = t.RejectionReason
	if t.SubmittedAt != nil {
		p.SubmittedAt = t.SubmittedAt
	}
	p.UpdatedAt = t.At
}

// VerificationHistoryEntry - неизменяемая запись журнала модерации
type VerificationHistoryEntry struct {
	ID              uuid.UUID        `json:"id"`
	PropertyID      uuid.UUID        `json:"property_id"`
	Status          PropertyStatus   `json:"status"`
	Notes           string           `json:"notes"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	Reviewer        ReviewerSnapshot `json:"reviewer"`
	CreatedAt       time.Time        `json:"created_at"`
}

func NewHistoryEntry(p *Property) VerificationHistoryEntry {
	entry := VerificationHistoryEntry{
		ID:              uuid.New(),
		PropertyID:      p.ID,
		Status:          p.Status,
		Notes:           p.VerificationNotes,
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.UpdatedAt,
	}
	if p.VerifiedBy != nil {
		entry.Reviewer = *p.VerifiedBy
	}
	return entry
}

// PendingFilters - необязательные фильтры очереди модерации
type PendingFilters struct {
	OwnerID  *uuid.UUID
	Category string
	PriceMin *float64
	PriceMax *float64
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage приводит параметры пагинации к допустимым значениям
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// PendingPage - страница очереди модерации
type PendingPage struct {
	Items      []Property
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

func NewPendingPage(items []Property, total, page, pageSize int) *PendingPage {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	if items == nil {
		items = []Property{}
	}
	return &PendingPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// DecisionResult - итог decideVerification
type DecisionResult struct {
	Property        *Property
	History         VerificationHistoryEntry
	SideChannelErrs []SideChannelFailure
}

// SubmissionResult - итог submitForVerification
type SubmissionResult struct {
	Property          *Property
	NotifiedReviewers int
	SideChannelErrs   []SideChannelFailure
}
