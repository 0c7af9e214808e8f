package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProperty_StartsAsDraft(t *testing.T) {
	f := newFixture()
	owner := uuid.New()

	p, err := f.createUC().Execute(context.Background(), owner, completeFields(), nil)
	require.NoError(t, err)

	stored, err := f.store.Properties().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, stored.Status)
	assert.Equal(t, owner, stored.OwnerID)
	assert.Zero(t, stored.Views)
	assert.Zero(t, stored.Inquiries)
	assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)
	assert.Len(t, stored.Geohash, 7)
	assert.NoError(t, stored.CheckInvariants())
}

func TestCreateProperty_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.createUC().Execute(ctx, uuid.Nil, completeFields(), nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	fields := completeFields()
	fields.Price = ptr(-1.0)
	_, err = f.createUC().Execute(ctx, uuid.New(), fields, nil)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"price"}, vErr.Fields)
}

func TestCreateProperty_WithMedia(t *testing.T) {
	f := newFixture()
	files := []domain.MediaFile{
		{Name: "a.png", ContentType: "image/png", Data: []byte("a")},
		{Name: "b.png", ContentType: "image/png", Data: []byte("b")},
	}

	p, err := f.createUC().Execute(context.Background(), uuid.New(), completeFields(), files)
	require.NoError(t, err)
	assert.Len(t, p.Images, 2)

	stored, err := f.store.Properties().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Images, stored.Images)
}

// Сценарий A: неполный черновик не отправляется на проверку
func TestSubmit_MissingFieldsAreListed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.createUC().Execute(ctx, uuid.New(), domain.PropertyFields{Price: ptr(500000.0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, p.Status)

	_, err = f.submitUC().Execute(ctx, p.ID)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"title", "description", "location", "category"}, vErr.Fields)

	p2, err := f.createUC().Execute(ctx, uuid.New(), domain.PropertyFields{Description: "d", Location: "l", Category: "c"}, nil)
	require.NoError(t, err)
	_, err = f.submitUC().Execute(ctx, p2.ID)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"title", "price"}, vErr.Fields)

	stored, err := f.store.Properties().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, stored.Status)
}

// Сценарий B: успешная отправка уведомляет каждого модератора
func TestSubmit_NotifiesEveryReviewer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r1, r2 := f.reviewer(t, "r1"), f.reviewer(t, "r2")

	p, err := f.createUC().Execute(ctx, uuid.New(), completeFields(), nil)
	require.NoError(t, err)

	res, err := f.submitUC().Execute(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, res.Property.Status)
	assert.NotNil(t, res.Property.SubmittedAt)
	assert.Equal(t, 2, res.NotifiedReviewers)
	assert.Empty(t, res.SideChannelErrs)

	for _, r := range []domain.Profile{r1, r2} {
		records := f.queue.For(r.ID)
		require.Len(t, records, 1)
		assert.Equal(t, domain.NotificationPropertySubmitted, records[0].Type)
		assert.Equal(t, p.ID.String(), records[0].Payload["property_id"])
	}
}

func TestSubmit_NotifiesPromotedReviewer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ensure := NewEnsureProfileUseCase(f.store.Profiles())
	id := uuid.New()

	_, created, err := ensure.Execute(ctx, domain.Profile{ID: id, DisplayName: "alex", Role: domain.RoleOwner})
	require.NoError(t, err)
	require.True(t, created)

	promoted, created, err := ensure.Execute(ctx, domain.Profile{ID: id, DisplayName: "alex", Role: domain.RoleReviewer})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.RoleReviewer, promoted.Role)

	p, err := f.createUC().Execute(ctx, uuid.New(), completeFields(), nil)
	require.NoError(t, err)
	res, err := f.submitUC().Execute(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NotifiedReviewers)

	records := f.queue.For(id)
	require.Len(t, records, 1)
	assert.Equal(t, domain.NotificationPropertySubmitted, records[0].Type)
}

func TestSubmit_ReviewerFailureIsSideChannel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	good, bad := f.reviewer(t, "good"), f.reviewer(t, "bad")
	f.queue.failFor[bad.ID] = true

	p, err := f.createUC().Execute(ctx, uuid.New(), completeFields(), nil)
	require.NoError(t, err)

	res, err := f.submitUC().Execute(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NotifiedReviewers)
	require.Len(t, res.SideChannelErrs, 1)
	assert.Equal(t, bad.ID.String(), res.SideChannelErrs[0].RecipientID)
	assert.Len(t, f.queue.For(good.ID), 1)
	// неудачный получатель пробовался столько раз, сколько позволяет политика
	assert.Equal(t, int(fastRetry.MaxTries), f.queue.calls[bad.ID])
}

func TestSubmit_TransientEnqueueFailureIsRetried(t *testing.T) {
	f := newFixture()
	r := f.reviewer(t, "r")
	f.queue.failNext = 1

	p, err := f.createUC().Execute(context.Background(), uuid.New(), completeFields(), nil)
	require.NoError(t, err)

	res, err := f.submitUC().Execute(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, res.SideChannelErrs)
	assert.Len(t, f.queue.For(r.ID), 1)
}

func TestSubmit_RequiresDraft(t *testing.T) {
	f := newFixture()
	p := f.pendingProperty(t, uuid.New())

	_, err := f.submitUC().Execute(context.Background(), p.ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.submitUC().Execute(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

// Сценарий C: отклонение без причины не проходит, с причиной - проходит
func TestDecide_RejectRequiresReason(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := uuid.New()
	r1 := f.reviewer(t, "r1")
	p := f.pendingProperty(t, owner)

	_, err := f.decideUC().Execute(ctx, p.ID, reviewerInput(domain.DecisionRejected, r1, ""))
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"rejection_reason"}, vErr.Fields)

	stored, err := f.store.Properties().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, stored.Status)

	res, err := f.decideUC().Execute(ctx, p.ID, reviewerInput(domain.DecisionRejected, r1, "Incomplete documents"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Property.Status)
	assert.Equal(t, "Incomplete documents", res.Property.RejectionReason)
	require.NotNil(t, res.Property.VerifiedBy)
	assert.Equal(t, r1.ID, res.Property.VerifiedBy.ID)
	assert.NoError(t, res.Property.CheckInvariants())

	history, err := f.store.History().ListByProperty(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusRejected, history[0].Status)

	ownerNotes := f.queue.For(owner)
	require.Len(t, ownerNotes, 1)
	assert.Equal(t, domain.NotificationPropertyRejected, ownerNotes[0].Type)
	assert.Equal(t, "Incomplete documents", ownerNotes[0].Payload["rejection_reason"])
}

func TestDecide_VerifiedClearsRejectionReason(t *testing.T) {
	f := newFixture()
	r := f.reviewer(t, "r")
	p := f.pendingProperty(t, uuid.New())

	in := reviewerInput(domain.DecisionVerified, r, "ignored for verified")
	in.Notes = "looks good"
	res, err := f.decideUC().Execute(context.Background(), p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, res.Property.Status)
	assert.Empty(t, res.Property.RejectionReason)
	assert.Equal(t, "looks good", res.History.Notes)
	assert.NoError(t, res.Property.CheckInvariants())
}

func TestDecide_ConcurrentReviewersExactlyOneWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r1, r2 := f.reviewer(t, "r1"), f.reviewer(t, "r2")
	p := f.pendingProperty(t, uuid.New())

	uc := f.decideUC()
	inputs := []domain.DecisionInput{
		reviewerInput(domain.DecisionVerified, r1, ""),
		reviewerInput(domain.DecisionRejected, r2, "Bad photos"),
	}

	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = uc.Execute(ctx, p.ID, in)
		}()
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
			assert.Contains(t, err.Error(), "already been reviewed")
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	history, err := f.store.History().ListByProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDecide_HistoryFailureLeavesStatusUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := uuid.New()
	r := f.reviewer(t, "r")
	p := f.pendingProperty(t, owner)

	f.store.HistoryHook = func(entry domain.VerificationHistoryEntry) error {
		return errors.New("history table locked")
	}
	_, err := f.decideUC().Execute(ctx, p.ID, reviewerInput(domain.DecisionRejected, r, "Bad photos"))
	require.Error(t, err)
	assert.True(t, domain.IsGatewayError(err))

	stored, err := f.store.Properties().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, stored.Status)
	assert.Nil(t, stored.VerifiedBy)
	history, err := f.store.History().ListByProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.queue.For(owner))

	// повтор того же решения проходит, а не упирается в "already reviewed"
	f.store.HistoryHook = nil
	res, err := f.decideUC().Execute(ctx, p.ID, reviewerInput(domain.DecisionRejected, r, "Bad photos"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Property.Status)

	history, err = f.store.History().ListByProperty(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.History.ID, history[0].ID)
	assert.Len(t, f.queue.For(owner), 1)
}

func TestDecide_OwnerNotificationFailureIsSideChannel(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	r := f.reviewer(t, "r")
	p := f.pendingProperty(t, owner)
	f.queue.failFor[owner] = true

	res, err := f.decideUC().Execute(context.Background(), p.ID, reviewerInput(domain.DecisionVerified, r, ""))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, res.Property.Status)
	require.Len(t, res.SideChannelErrs, 1)
	assert.Equal(t, owner.String(), res.SideChannelErrs[0].RecipientID)
}

func TestDecide_Validation(t *testing.T) {
	f := newFixture()
	p := f.pendingProperty(t, uuid.New())

	_, err := f.decideUC().Execute(context.Background(), p.ID, domain.DecisionInput{Decision: "maybe", Reviewer: domain.ReviewerSnapshot{ID: uuid.New()}})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.decideUC().Execute(context.Background(), p.ID, domain.DecisionInput{Decision: domain.DecisionVerified})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.decideUC().Execute(context.Background(), uuid.New(), reviewerInput(domain.DecisionVerified, f.reviewer(t, "r"), ""))
	require.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestHistory_NewestFirstAcrossCycles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.reviewer(t, "r")
	p := f.pendingProperty(t, uuid.New())

	_, err := f.decideUC().Execute(ctx, p.ID, reviewerInput(domain.DecisionRejected, r, "Missing photos"))
	require.NoError(t, err)

	back := NewReturnToDraftUseCase(f.store.Properties())
	back.now = f.clock.Now
	draft, err := back.Execute(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, draft.Status)
	assert.Nil(t, draft.VerifiedAt)
	assert.Nil(t, draft.VerifiedBy)
	assert.Empty(t, draft.RejectionReason)
	assert.NoError(t, draft.CheckInvariants())

	_, err = f.submitUC().Execute(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.decideUC().Execute(ctx, p.ID, reviewerInput(domain.DecisionVerified, r, ""))
	require.NoError(t, err)

	uc := NewGetVerificationHistoryUseCase(f.store.Properties(), f.store.History(), fastRetry)
	history, err := uc.Execute(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.StatusVerified, history[0].Status)
	assert.Equal(t, domain.StatusRejected, history[1].Status)
	assert.True(t, history[0].CreatedAt.After(history[1].CreatedAt))

	_, err = uc.Execute(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestReturnToDraft_OnlyFromRejected(t *testing.T) {
	f := newFixture()
	p := f.pendingProperty(t, uuid.New())

	_, err := NewReturnToDraftUseCase(f.store.Properties()).Execute(context.Background(), p.ID)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusPendingVerification, conflict.Actual)
}

func (f *fixture) updateUC() *UpdatePropertyUseCase {
	uc := NewUpdatePropertyUseCase(f.store.Properties(), fastRetry)
	uc.now = f.clock.Now
	return uc
}

func TestUpdate_DoesNotChangeStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.pendingProperty(t, uuid.New())

	updated, err := f.updateUC().Execute(ctx, p.ID, domain.PropertyPatch{
		Price:       ptr(450000.0),
		Coordinates: &domain.Coordinates{Latitude: 52.1, Longitude: 23.7},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, updated.Status)
	assert.Equal(t, 450000.0, *updated.Price)
	assert.NotEqual(t, p.Geohash, updated.Geohash)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))

	stored, err := f.store.Properties().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, stored.Status)
	assert.Equal(t, 450000.0, *stored.Price)
}

func TestUpdate_VerifiedListingIsLocked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.reviewer(t, "r")
	p := f.pendingProperty(t, uuid.New())
	_, err := f.decideUC().Execute(ctx, p.ID, reviewerInput(domain.DecisionVerified, r, ""))
	require.NoError(t, err)

	_, err = f.updateUC().Execute(ctx, p.ID, domain.PropertyPatch{Title: ptr("totally different"), Price: ptr(1.0)})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusVerified, conflict.Actual)

	stored, err := f.store.Properties().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, stored.Status)
	assert.Equal(t, completeFields().Title, stored.Title)
	assert.Equal(t, *completeFields().Price, *stored.Price)
}

func TestUpdate_RejectedListingNeedsReturnToDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.reviewer(t, "r")
	p := f.pendingProperty(t, uuid.New())
	_, err := f.decideUC().Execute(ctx, p.ID, reviewerInput(domain.DecisionRejected, r, "Wrong price"))
	require.NoError(t, err)

	patch := domain.PropertyPatch{Price: ptr(450000.0)}
	_, err = f.updateUC().Execute(ctx, p.ID, patch)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusRejected, conflict.Actual)

	_, err = NewReturnToDraftUseCase(f.store.Properties()).Execute(ctx, p.ID)
	require.NoError(t, err)

	updated, err := f.updateUC().Execute(ctx, p.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, updated.Status)
	assert.Equal(t, 450000.0, *updated.Price)
}

func TestUpdate_Validation(t *testing.T) {
	f := newFixture()
	uc := NewUpdatePropertyUseCase(f.store.Properties(), fastRetry)

	_, err := uc.Execute(context.Background(), uuid.New(), domain.PropertyPatch{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(context.Background(), uuid.New(), domain.PropertyPatch{Bedrooms: ptr(-2)})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(context.Background(), uuid.New(), domain.PropertyPatch{Title: ptr("x")})
	require.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestListPending_Pagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.pendingProperty(t, uuid.New())
	}
	uc := NewListPendingVerificationsUseCase(f.store.Properties(), fastRetry)

	page, err := uc.Execute(ctx, 0, 0, domain.PendingFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, domain.DefaultPageSize, page.PageSize)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	page, err = uc.Execute(ctx, 2, 2, domain.PendingFilters{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)

	page, err = uc.Execute(ctx, 1, 1000, domain.PendingFilters{})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxPageSize, page.PageSize)

	_, err = uc.Execute(ctx, 1, 10, domain.PendingFilters{PriceMin: ptr(10.0), PriceMax: ptr(5.0)})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetProperty(t *testing.T) {
	f := newFixture()
	p, err := f.createUC().Execute(context.Background(), uuid.New(), completeFields(), nil)
	require.NoError(t, err)

	uc := NewGetPropertyUseCase(f.store.Properties(), fastRetry)
	got, err := uc.Execute(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)

	_, err = uc.Execute(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestEnsureProfile(t *testing.T) {
	f := newFixture()
	uc := NewEnsureProfileUseCase(f.store.Profiles())
	id := uuid.New()

	_, _, err := uc.Execute(context.Background(), domain.Profile{ID: id, Role: "guest"})
	require.ErrorIs(t, err, domain.ErrValidation)

	p, created, err := uc.Execute(context.Background(), domain.Profile{ID: id, Role: domain.RoleOwner})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, id, p.ID)

	_, created, err = uc.Execute(context.Background(), domain.Profile{ID: id, Role: domain.RoleOwner})
	require.NoError(t, err)
	assert.False(t, created)
}
