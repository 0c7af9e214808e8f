package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAnalytics_ZeroFilledUTCBuckets(t *testing.T) {
	id := uuid.New()
	minsk := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2024, 3, 15, 1, 20, 0, 0, minsk) // 2024-03-14 22:20 UTC

	events := []UsageEvent{
		NewViewEvent(id, nil, time.Date(2024, 3, 14, 22, 5, 0, 0, time.UTC)),
		NewViewEvent(id, nil, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)),
		NewInquiryEvent(id, nil, InquiryPayload{}, time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)),
		NewViewEvent(id, nil, time.Date(2024, 3, 7, 23, 59, 0, 0, time.UTC)),
	}

	week := BuildAnalytics(id, events, WindowWeek, now)
	require.Len(t, week.Series, 7)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), week.From)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), week.To)
	assert.EqualValues(t, 1, week.Series[0].Inquiries)
	assert.EqualValues(t, 2, week.Series[6].Views)
	assert.EqualValues(t, 2, week.TotalViews)
	assert.EqualValues(t, 1, week.TotalInquiries)
	for i := 1; i < 6; i++ {
		assert.Zero(t, week.Series[i].Views)
		assert.Equal(t, week.From.Add(time.Duration(i)*24*time.Hour), week.Series[i].BucketStart)
	}

	day := BuildAnalytics(id, events, WindowDay, now)
	require.Len(t, day.Series, 24)
	assert.Equal(t, time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC), day.To)
	assert.EqualValues(t, 1, day.Series[23].Views)
	assert.EqualValues(t, 1, day.Series[1].Views)
	assert.EqualValues(t, 2, day.TotalViews)

	month := BuildAnalytics(id, nil, WindowMonth, now)
	assert.Len(t, month.Series, 30)
	assert.Zero(t, month.TotalViews)
}

func TestParseAnalyticsWindow(t *testing.T) {
	w, err := ParseAnalyticsWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowWeek, w)

	w, err = ParseAnalyticsWindow("Month")
	require.NoError(t, err)
	assert.Equal(t, WindowMonth, w)

	_, err = ParseAnalyticsWindow("year")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInquiryPayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload InquiryPayload
		invalid []string
	}{
		{"email contact", InquiryPayload{Message: "hi", Email: "a@b.c"}, nil},
		{"phone contact", InquiryPayload{Message: "hi", Phone: "123"}, nil},
		{"nothing", InquiryPayload{}, []string{"message", "contact"}},
		{"bad email", InquiryPayload{Message: "hi", Email: "nope"}, []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.invalid == nil {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.invalid, vErr.Fields)
		})
	}
}

func TestNormalizePage(t *testing.T) {
	p, s := NormalizePage(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, DefaultPageSize, s)

	p, s = NormalizePage(3, 500)
	assert.Equal(t, 3, p)
	assert.Equal(t, MaxPageSize, s)

	page := NewPendingPage(nil, 41, 1, 20)
	assert.Equal(t, 3, page.TotalPages)
	assert.NotNil(t, page.Items)
}

func TestMediaObjectKey(t *testing.T) {
	id := uuid.MustParse("7b1f0c52-1c33-4c1e-9a6c-2f1e3d6b8a10")
	at := time.Unix(0, 1700000000123456789)

	assert.Equal(t, id.String()+"/1700000000123456789-photo.jpg", MediaObjectKey(id, at, "photo.jpg"))
	assert.Equal(t, id.String()+"/1700000000123456789-passwd", MediaObjectKey(id, at, "../../etc/passwd"))
	assert.Equal(t, id.String()+"/1700000000123456789-plan.pdf", MediaObjectKey(id, at, `C:\docs\plan.pdf`))
	assert.Equal(t, id.String()+"/1700000000123456789-file", MediaObjectKey(id, at, ""))
}

func TestNotifications(t *testing.T) {
	now := time.Now()
	p := NewProperty(uuid.New(), PropertyFields{Title: "Flat"}, now)
	reviewer := ReviewerSnapshot{ID: uuid.New()}

	p.Apply(NewSubmitTransition(now))
	p.Apply(NewDecisionTransition(DecisionInput{Decision: DecisionRejected, RejectionReason: "dup", Reviewer: reviewer}, now))
	entry := NewHistoryEntry(p)
	assert.Equal(t, reviewer.ID, entry.Reviewer.ID)

	n := NewDecisionNotification(p, entry, now)
	assert.Equal(t, p.OwnerID, n.RecipientID)
	assert.Equal(t, NotificationPropertyRejected, n.Type)
	assert.Equal(t, "dup", n.Payload["rejection_reason"])
	assert.NotEqual(t, uuid.Nil, n.ID)

	r := NewSubmissionNotification(reviewer.ID, p, now)
	assert.Equal(t, NotificationPropertySubmitted, r.Type)
	assert.Equal(t, reviewer.ID, r.RecipientID)
}
