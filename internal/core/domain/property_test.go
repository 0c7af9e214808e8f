package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewProperty_Defaults(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewProperty(uuid.New(), PropertyFields{Title: "t", Coordinates: &Coordinates{Latitude: 53.9, Longitude: 27.56}}, now)

	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
	assert.NotNil(t, p.Images)
	assert.NotNil(t, p.Documents)
	assert.NotNil(t, p.Amenities)
	assert.Equal(t, "u9edehh", p.Geohash)
	assert.NoError(t, p.CheckInvariants())
}

func TestPropertyFields_Validate(t *testing.T) {
	err := PropertyFields{
		Price:       ptr(-5.0),
		Bathrooms:   ptr(-1),
		Coordinates: &Coordinates{Latitude: 91},
	}.Validate()

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"price", "bathrooms", "coordinates"}, vErr.Fields)
	assert.True(t, errors.Is(err, ErrValidation))

	assert.NoError(t, PropertyFields{}.Validate())
}

func TestMissingRequiredFields_FixedOrder(t *testing.T) {
	p := NewProperty(uuid.New(), PropertyFields{Description: "d", Location: "l", Category: "c"}, time.Now())
	assert.Equal(t, []string{"title", "price"}, p.MissingRequiredFields())

	p.Title, p.Price = "t", ptr(0.0)
	assert.Empty(t, p.MissingRequiredFields())
}

func TestApplyPatch(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewProperty(uuid.New(), PropertyFields{Title: "old", Amenities: []string{"parking"}}, created)

	later := created.Add(time.Hour)
	p.ApplyPatch(PropertyPatch{
		Title:       ptr("new"),
		Amenities:   &[]string{},
		Coordinates: &Coordinates{Latitude: 1, Longitude: 1},
	}, later)

	assert.Equal(t, "new", p.Title)
	assert.Empty(t, p.Amenities)
	assert.NotEmpty(t, p.Geohash)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, later, p.UpdatedAt)
	assert.Equal(t, StatusDraft, p.Status)
}

func TestCheckInvariants(t *testing.T) {
	now := time.Now()
	reviewer := &ReviewerSnapshot{ID: uuid.New()}

	tests := []struct {
		name    string
		mutate  func(p *Property)
		invalid []string
	}{
		{"draft is clean", func(p *Property) {}, nil},
		{"pending with verified_at", func(p *Property) {
			p.Status = StatusPendingVerification
			p.VerifiedAt = &now
		}, []string{"verified_at"}},
		{"verified without reviewer", func(p *Property) {
			p.Status = StatusVerified
			p.VerifiedAt = &now
		}, []string{"verified_by"}},
		{"rejected without reason", func(p *Property) {
			p.Status = StatusRejected
			p.VerifiedAt = &now
			p.VerifiedBy = reviewer
		}, []string{"rejection_reason"}},
		{"verified with reason", func(p *Property) {
			p.Status = StatusVerified
			p.VerifiedAt = &now
			p.VerifiedBy = reviewer
			p.RejectionReason = "x"
		}, []string{"rejection_reason"}},
		{"unknown status", func(p *Property) { p.Status = "archived" }, []string{"status"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProperty(uuid.New(), PropertyFields{}, now)
			tt.mutate(p)
			err := p.CheckInvariants()
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

func TestTransitions_KeepInvariants(t *testing.T) {
	now := time.Now()
	p := NewProperty(uuid.New(), PropertyFields{}, now)
	reviewer := ReviewerSnapshot{ID: uuid.New(), DisplayName: "r"}

	p.Apply(NewSubmitTransition(now))
	require.NoError(t, p.CheckInvariants())
	submitted := p.SubmittedAt
	require.NotNil(t, submitted)

	p.Apply(NewDecisionTransition(DecisionInput{Decision: DecisionRejected, RejectionReason: " blurry ", Reviewer: reviewer}, now))
	require.NoError(t, p.CheckInvariants())
	assert.Equal(t, "blurry", p.RejectionReason)
	assert.Equal(t, submitted, p.SubmittedAt)

	p.Apply(NewReturnToDraftTransition(now))
	require.NoError(t, p.CheckInvariants())
	assert.Equal(t, StatusDraft, p.Status)

	p.Apply(NewSubmitTransition(now))
	p.Apply(NewDecisionTransition(DecisionInput{Decision: DecisionVerified, RejectionReason: "ignored", Reviewer: reviewer}, now))
	require.NoError(t, p.CheckInvariants())
	assert.Empty(t, p.RejectionReason)
}

func TestHasMedia(t *testing.T) {
	p := NewProperty(uuid.New(), PropertyFields{}, time.Now())
	p.Images = []string{"i1"}
	p.Documents = []string{"d1"}

	kind, ok := p.HasMedia("d1")
	assert.True(t, ok)
	assert.Equal(t, MediaDocuments, kind)

	_, ok = p.HasMedia("x")
	assert.False(t, ok)
}

func TestErrors(t *testing.T) {
	conflict := NewStatusConflict(StatusDraft, StatusVerified)
	assert.True(t, errors.Is(conflict, ErrConflict))
	assert.Contains(t, conflict.Error(), "verified")

	gw := NewStorageError("put", errors.New("reset"))
	assert.True(t, errors.Is(gw, ErrStorage))
	assert.False(t, errors.Is(gw, ErrPersistence))
	assert.True(t, IsGatewayError(gw))
	assert.False(t, IsGatewayError(ErrPropertyNotFound))
}
