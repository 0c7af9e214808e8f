package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newPending(t *testing.T, repo *PropertyRepository, owner uuid.UUID, category string, price float64, submitted time.Time) *domain.Property {
	t.Helper()
	p := domain.NewProperty(owner, domain.PropertyFields{
		Title: "t", Description: "d", Price: ptr(price), Location: "l", Category: category,
	}, submitted)
	require.NoError(t, repo.Create(context.Background(), p))
	_, err := repo.TransitionStatus(context.Background(), p.ID, domain.NewSubmitTransition(submitted))
	require.NoError(t, err)
	return p
}

func TestPropertyRepository_ReturnsCopies(t *testing.T) {
	repo := NewStore().Properties()
	p := domain.NewProperty(uuid.New(), domain.PropertyFields{Title: "a"}, time.Now())
	require.NoError(t, repo.Create(context.Background(), p))

	loaded, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	loaded.Title = "changed"
	loaded.Images = append(loaded.Images, "x")

	again, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Title)
	assert.Empty(t, again.Images)
}

func TestPropertyRepository_TransitionStatus(t *testing.T) {
	repo := NewStore().Properties()
	ctx := context.Background()

	_, err := repo.TransitionStatus(ctx, uuid.New(), domain.NewSubmitTransition(time.Now()))
	require.ErrorIs(t, err, domain.ErrPropertyNotFound)

	p := domain.NewProperty(uuid.New(), domain.PropertyFields{}, time.Now())
	require.NoError(t, repo.Create(ctx, p))

	_, err = repo.TransitionStatus(ctx, p.ID, domain.NewReturnToDraftTransition(time.Now()))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusRejected, conflict.Expected)
	assert.Equal(t, domain.StatusDraft, conflict.Actual)

	updated, err := repo.TransitionStatus(ctx, p.ID, domain.NewSubmitTransition(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, updated.Status)
	assert.NotNil(t, updated.SubmittedAt)
}

func TestPropertyRepository_UpdateKeepsStatus(t *testing.T) {
	repo := NewStore().Properties()
	ctx := context.Background()
	p := newPending(t, repo, uuid.New(), "flat", 10, time.Now())

	stale := *p
	stale.Status = domain.StatusDraft
	stale.Title = "new title"
	require.NoError(t, repo.Update(ctx, &stale))

	loaded, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new title", loaded.Title)
	assert.Equal(t, domain.StatusPendingVerification, loaded.Status)
}

func TestPropertyRepository_UpdateOnlyInEditableStatuses(t *testing.T) {
	store := NewStore()
	repo := store.Properties()
	ctx := context.Background()
	p := newPending(t, repo, uuid.New(), "flat", 10, time.Now())

	reviewer := domain.ReviewerSnapshot{ID: uuid.New(), Role: domain.RoleReviewer}
	_, err := repo.TransitionStatus(ctx, p.ID, domain.NewDecisionTransition(domain.DecisionInput{
		Decision: domain.DecisionVerified,
		Reviewer: reviewer,
	}, time.Now()))
	require.NoError(t, err)

	patched := *p
	patched.Title = "totally different"
	patched.Price = ptr(1.0)
	err = repo.Update(ctx, &patched)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusVerified, conflict.Actual)

	loaded, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", loaded.Title)
	assert.Equal(t, 10.0, *loaded.Price)

	missing := *p
	missing.ID = uuid.New()
	assert.ErrorIs(t, repo.Update(ctx, &missing), domain.ErrPropertyNotFound)
}

func TestPropertyRepository_TransitionWithHistory(t *testing.T) {
	store := NewStore()
	repo := store.Properties()
	ctx := context.Background()
	p := newPending(t, repo, uuid.New(), "flat", 10, time.Now())
	decision := domain.NewDecisionTransition(domain.DecisionInput{
		Decision:        domain.DecisionRejected,
		RejectionReason: "Bad photos",
		Reviewer:        domain.ReviewerSnapshot{ID: uuid.New(), Role: domain.RoleReviewer},
	}, time.Now())

	store.HistoryHook = func(entry domain.VerificationHistoryEntry) error {
		return errors.New("disk full")
	}
	_, _, err := repo.TransitionWithHistory(ctx, p.ID, decision)
	require.ErrorIs(t, err, domain.ErrPersistence)

	loaded, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, loaded.Status)
	assert.Empty(t, loaded.RejectionReason)
	history, err := store.History().ListByProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	store.HistoryHook = nil
	updated, entry, err := repo.TransitionWithHistory(ctx, p.ID, decision)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, updated.Status)
	assert.Equal(t, domain.StatusRejected, entry.Status)
	assert.Equal(t, "Bad photos", entry.RejectionReason)

	history, err = store.History().ListByProperty(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entry.ID, history[0].ID)

	_, _, err = repo.TransitionWithHistory(ctx, p.ID, decision)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusRejected, conflict.Actual)
}

func TestHistoryRepository_NewestFirstThenByID(t *testing.T) {
	store := NewStore()
	propertyID := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lowID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	highID := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")
	oldID := uuid.New()

	// порядок вставки намеренно не совпадает с порядком выдачи
	store.history = []domain.VerificationHistoryEntry{
		{ID: lowID, PropertyID: propertyID, Status: domain.StatusRejected, CreatedAt: base.Add(time.Hour)},
		{ID: oldID, PropertyID: propertyID, Status: domain.StatusRejected, CreatedAt: base},
		{ID: uuid.New(), PropertyID: uuid.New(), Status: domain.StatusVerified, CreatedAt: base.Add(2 * time.Hour)},
		{ID: highID, PropertyID: propertyID, Status: domain.StatusVerified, CreatedAt: base.Add(time.Hour)},
	}

	entries, err := store.History().ListByProperty(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, highID, entries[0].ID)
	assert.Equal(t, lowID, entries[1].ID)
	assert.Equal(t, oldID, entries[2].ID)
}

func TestPropertyRepository_FindPending(t *testing.T) {
	repo := NewStore().Properties()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.New()

	third := newPending(t, repo, owner, "house", 300, base.Add(3*time.Hour))
	first := newPending(t, repo, owner, "flat", 100, base.Add(time.Hour))
	second := newPending(t, repo, uuid.New(), "flat", 200, base.Add(2*time.Hour))
	// черновик в выборку не попадает
	require.NoError(t, repo.Create(ctx, domain.NewProperty(owner, domain.PropertyFields{}, base)))

	items, total, err := repo.FindPending(ctx, domain.PendingFilters{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)

	items, _, err = repo.FindPending(ctx, domain.PendingFilters{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, third.ID, items[0].ID)

	items, total, err = repo.FindPending(ctx, domain.PendingFilters{OwnerID: &owner, PriceMax: ptr(100.0)}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, first.ID, items[0].ID)

	_, total, err = repo.FindPending(ctx, domain.PendingFilters{Category: "flat", PriceMin: ptr(100.0), PriceMax: ptr(200.0)}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, total, err = repo.FindPending(ctx, domain.PendingFilters{}, 10, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, items)
}

func TestUsageRepository_RecordIncrementsCounter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	p := domain.NewProperty(uuid.New(), domain.PropertyFields{}, time.Now())
	require.NoError(t, store.Properties().Create(ctx, p))

	require.NoError(t, store.Usage().Record(ctx, domain.NewViewEvent(p.ID, nil, time.Now())))
	require.NoError(t, store.Usage().Record(ctx, domain.NewInquiryEvent(p.ID, nil, domain.InquiryPayload{Message: "hi", Phone: "1"}, time.Now())))

	loaded, err := store.Properties().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, loaded.Views)
	assert.EqualValues(t, 1, loaded.Inquiries)

	err = store.Usage().Record(ctx, domain.NewViewEvent(uuid.New(), nil, time.Now()))
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestProfileRepository_EnsureKeepsFieldsAndRefreshesRole(t *testing.T) {
	repo := NewStore().Profiles()
	ctx := context.Background()
	id := uuid.New()

	stored, created, err := repo.EnsureProfile(ctx, domain.Profile{ID: id, DisplayName: "first", Role: domain.RoleOwner})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "first", stored.DisplayName)

	stored, created, err = repo.EnsureProfile(ctx, domain.Profile{ID: id, DisplayName: "second", Role: domain.RoleReviewer})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "first", stored.DisplayName)
	assert.Equal(t, domain.RoleReviewer, stored.Role)

	reviewers, err := repo.FindByRole(ctx, domain.RoleReviewer)
	require.NoError(t, err)
	require.Len(t, reviewers, 1)
	assert.Equal(t, id, reviewers[0].ID)

	owners, err := repo.FindByRole(ctx, domain.RoleOwner)
	require.NoError(t, err)
	assert.Empty(t, owners)
}

func TestObjectStorage_KeyFromURL(t *testing.T) {
	storage := NewObjectStorage("http://media.local/bucket/")
	url, err := storage.Put(context.Background(), "p/1-a.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/bucket/p/1-a.jpg", url)

	key, err := storage.KeyFromURL(url)
	require.NoError(t, err)
	assert.Equal(t, "p/1-a.jpg", key)

	_, err = storage.KeyFromURL("http://elsewhere/p/1-a.jpg")
	assert.Error(t, err)
}

type dispatchFunc func(ctx context.Context, record domain.NotificationRecord) error

func (f dispatchFunc) Execute(ctx context.Context, record domain.NotificationRecord) error {
	return f(ctx, record)
}

func TestNotificationQueue_DeliversWithRetries(t *testing.T) {
	store := NewStore()
	inbox := store.Inbox()
	attempts := 0
	handler := dispatchFunc(func(ctx context.Context, record domain.NotificationRecord) error {
		attempts++
		if attempts == 1 {
			return domain.NewDispatchError("send", errors.New("temporary"))
		}
		return inbox.Send(ctx, record)
	})

	queue := NewNotificationQueue(4, 2, handler, contextkeys.NoopLogger()).WithBackoff(time.Millisecond, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = queue.Start(ctx) }()

	recipient := uuid.New()
	record := domain.NotificationRecord{ID: uuid.New(), RecipientID: recipient, Type: domain.NotificationPropertyVerified}
	require.NoError(t, queue.Enqueue(ctx, record))

	require.Eventually(t, func() bool {
		return len(inbox.ForRecipient(recipient)) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, queue.Close())
	err := queue.Enqueue(ctx, record)
	assert.ErrorIs(t, err, domain.ErrDispatch)
}

func TestNotificationQueue_BoundedBackoff(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts []time.Time
	)
	handler := dispatchFunc(func(ctx context.Context, record domain.NotificationRecord) error {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, time.Now())
		return domain.NewDispatchError("send", errors.New("inbox unavailable"))
	})
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(attempts)
	}

	queue := NewNotificationQueue(4, 2, handler, contextkeys.NoopLogger()).WithBackoff(20*time.Millisecond, 40*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = queue.Start(ctx) }()

	require.NoError(t, queue.Enqueue(ctx, domain.NotificationRecord{ID: uuid.New(), RecipientID: uuid.New()}))
	require.Eventually(t, func() bool { return count() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, queue.Close())

	mu.Lock()
	defer mu.Unlock()
	// первая попытка и два повтора, не больше
	require.Len(t, attempts, 3)
	for i := 1; i < len(attempts); i++ {
		assert.GreaterOrEqual(t, attempts[i].Sub(attempts[i-1]), 5*time.Millisecond)
	}
}

func TestNotificationQueue_ValidationErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	handler := dispatchFunc(func(ctx context.Context, record domain.NotificationRecord) error {
		calls.Add(1)
		return domain.NewValidationError("unknown notification type", "type")
	})

	queue := NewNotificationQueue(4, 5, handler, contextkeys.NoopLogger()).WithBackoff(time.Millisecond, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = queue.Start(ctx) }()

	require.NoError(t, queue.Enqueue(ctx, domain.NotificationRecord{ID: uuid.New(), RecipientID: uuid.New()}))
	require.Eventually(t, func() bool { return calls.Load() == 1 && queue.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, queue.Close())
	assert.EqualValues(t, 1, calls.Load())
}

func TestNotificationQueue_CloseBeforeStart(t *testing.T) {
	handler := dispatchFunc(func(ctx context.Context, record domain.NotificationRecord) error { return nil })
	queue := NewNotificationQueue(1, 0, handler, contextkeys.NoopLogger())

	require.NoError(t, queue.Close())
	require.NoError(t, queue.Close())

	done := make(chan struct{})
	go func() {
		_ = queue.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start kept running after Close")
	}
}

func TestNotificationQueue_CloseWaitsForInFlightDelivery(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var delivered atomic.Bool
	handler := dispatchFunc(func(ctx context.Context, record domain.NotificationRecord) error {
		close(started)
		<-release
		delivered.Store(true)
		return nil
	})

	queue := NewNotificationQueue(1, 0, handler, contextkeys.NoopLogger())
	go func() { _ = queue.Start(context.Background()) }()
	require.NoError(t, queue.Enqueue(context.Background(), domain.NotificationRecord{ID: uuid.New(), RecipientID: uuid.New()}))
	<-started

	closed := make(chan struct{})
	go func() {
		_ = queue.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while delivery was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after delivery finished")
	}
	assert.True(t, delivered.Load())
}
