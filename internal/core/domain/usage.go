package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type UsageKind string

const (
	UsageView    UsageKind = "view"
	UsageInquiry UsageKind = "inquiry"
)

// InquiryPayload - контактные данные из формы запроса
type InquiryPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Validate: нужен текст и хотя бы один способ связи
func (p InquiryPayload) Validate() error {
	var invalid []string
	if strings.TrimSpace(p.Message) == "" {
		invalid = append(invalid, "message")
	}
	if strings.TrimSpace(p.Email) == "" && strings.TrimSpace(p.Phone) == "" {
		invalid = append(invalid, "contact")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		invalid = append(invalid, "email")
	}
	if len(invalid) > 0 {
		return NewValidationError("invalid inquiry", invalid...)
	}
	return nil
}

// UsageEvent - запись журнала использования, из которой строится аналитика
type UsageEvent struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	ActorID    *uuid.UUID
	Kind       UsageKind
	Inquiry    *InquiryPayload
	CreatedAt  time.Time
}

func NewViewEvent(propertyID uuid.UUID, actorID *uuid.UUID, now time.Time) UsageEvent {
	return UsageEvent{
		ID:         uuid.New(),
		PropertyID: propertyID,
		ActorID:    actorID,
		Kind:       UsageView,
		CreatedAt:  now,
	}
}

func NewInquiryEvent(propertyID uuid.UUID, actorID *uuid.UUID, payload InquiryPayload, now time.Time) UsageEvent {
	return UsageEvent{
		ID:         uuid.New(),
		PropertyID: propertyID,
		ActorID:    actorID,
		Kind:       UsageInquiry,
		Inquiry:    &payload,
		CreatedAt:  now,
	}
}

type AnalyticsWindow string

const (
	WindowDay   AnalyticsWindow = "day"
	WindowWeek  AnalyticsWindow = "week"
	WindowMonth AnalyticsWindow = "month"
)

func ParseAnalyticsWindow(s string) (AnalyticsWindow, error) {
	switch AnalyticsWindow(strings.ToLower(strings.TrimSpace(s))) {
	case WindowDay:
		return WindowDay, nil
	case WindowWeek, "":
		return WindowWeek, nil
	case WindowMonth:
		return WindowMonth, nil
	}
	return "", NewValidationError("window must be one of day, week, month", "window")
}

// Layout - шаг и количество корзин окна
func (w AnalyticsWindow) Layout() (step time.Duration, buckets int) {
	switch w {
	case WindowDay:
		return time.Hour, 24
	case WindowMonth:
		return 24 * time.Hour, 30
	default:
		return 24 * time.Hour, 7
	}
}

// Bounds возвращает полуинтервал [from, to) окна. Последняя корзина содержит now.
func (w AnalyticsWindow) Bounds(now time.Time) (from, to time.Time) {
	step, n := w.Layout()
	to = now.UTC().Truncate(step).Add(step)
	from = to.Add(-time.Duration(n) * step)
	return from, to
}

type AnalyticsBucket struct {
	BucketStart time.Time `json:"bucket_start"`
	Views       int64     `json:"views"`
	Inquiries   int64     `json:"inquiries"`
}

type AnalyticsSummary struct {
	PropertyID     uuid.UUID         `json:"property_id"`
	Window         AnalyticsWindow   `json:"window"`
	From           time.Time         `json:"from"`
	To             time.Time         `json:"to"`
	TotalViews     int64             `json:"total_views"`
	TotalInquiries int64             `json:"total_inquiries"`
	Series         []AnalyticsBucket `json:"series"`
}

// BuildAnalytics сворачивает события в корзины окна (UTC, пустые корзины заполнены нулями).
// События вне окна игнорируются.
func BuildAnalytics(propertyID uuid.UUID, events []UsageEvent, window AnalyticsWindow, now time.Time) *AnalyticsSummary {
	step, n := window.Layout()
	from, to := window.Bounds(now)

	series := make([]AnalyticsBucket, n)
	for i := range series {
		series[i].BucketStart = from.Add(time.Duration(i) * step)
	}

	summary := &AnalyticsSummary{
		PropertyID: propertyID,
		Window:     window,
		From:       from,
		To:         to,
		Series:     series,
	}

	for _, ev := range events {
		at := ev.CreatedAt.UTC()
		if at.Before(from) || !at.Before(to) {
			continue
		}
		idx := int(at.Sub(from) / step)
		switch ev.Kind {
		case UsageView:
			series[idx].Views++
			summary.TotalViews++
		case UsageInquiry:
			series[idx].Inquiries++
			summary.TotalInquiries++
		}
	}
	return summary
}
