package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"listing-service/internal/adapters/memory"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func ptr[T any](v T) *T { return &v }

// stepClock возвращает монотонно растущее время, по секунде на вызов
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock(start time.Time) *stepClock { return &stepClock{cur: start} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// recordingQueue запоминает поставленные в очередь уведомления.
// failFor - получатели, для которых Enqueue всегда падает.
type recordingQueue struct {
	mu       sync.Mutex
	records  []domain.NotificationRecord
	calls    map[uuid.UUID]int
	failFor  map[uuid.UUID]bool
	failNext int
}

func newRecordingQueue() *recordingQueue {
	return &recordingQueue{calls: map[uuid.UUID]int{}, failFor: map[uuid.UUID]bool{}}
}

func (q *recordingQueue) Enqueue(ctx context.Context, record domain.NotificationRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls[record.RecipientID]++
	if q.failFor[record.RecipientID] {
		return domain.NewDispatchError("enqueue", errors.New("broker unavailable"))
	}
	if q.failNext > 0 {
		q.failNext--
		return domain.NewDispatchError("enqueue", errors.New("broker timeout"))
	}
	q.records = append(q.records, record)
	return nil
}

func (q *recordingQueue) For(recipient uuid.UUID) []domain.NotificationRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []domain.NotificationRecord
	for _, r := range q.records {
		if r.RecipientID == recipient {
			out = append(out, r)
		}
	}
	return out
}

type fixture struct {
	store   *memory.Store
	objects *memory.ObjectStorage
	queue   *recordingQueue
	clock   *stepClock
}

func newFixture() *fixture {
	return &fixture{
		store:   memory.NewStore(),
		objects: memory.NewObjectStorage("http://media.test/listing"),
		queue:   newRecordingQueue(),
		clock:   newStepClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
	}
}

func (f *fixture) pipeline() *MediaPipeline {
	m := NewMediaPipeline(f.objects, nil, f.store.Properties(), MediaConfig{Workers: 2, Retry: fastRetry})
	m.now = f.clock.Now
	return m
}

func (f *fixture) createUC() *CreatePropertyUseCase {
	uc := NewCreatePropertyUseCase(f.store.Properties(), f.pipeline())
	uc.now = f.clock.Now
	return uc
}

func (f *fixture) submitUC() *SubmitForVerificationUseCase {
	uc := NewSubmitForVerificationUseCase(f.store.Properties(), f.store.Profiles(), f.queue, fastRetry)
	uc.now = f.clock.Now
	return uc
}

func (f *fixture) decideUC() *DecideVerificationUseCase {
	uc := NewDecideVerificationUseCase(f.store.Properties(), f.queue, fastRetry)
	uc.now = f.clock.Now
	return uc
}

func (f *fixture) reviewer(t *testing.T, name string) domain.Profile {
	t.Helper()
	p, _, err := f.store.Profiles().EnsureProfile(context.Background(), domain.Profile{
		ID: uuid.New(), DisplayName: name, Email: name + "@example.com", Role: domain.RoleReviewer,
	})
	require.NoError(t, err)
	return *p
}

func completeFields() domain.PropertyFields {
	return domain.PropertyFields{
		Title:       "Two-room flat",
		Description: "Bright flat near the park",
		Price:       ptr(500000.0),
		Location:    "Minsk",
		Category:    "apartment",
		Bedrooms:    ptr(2),
		Coordinates: &domain.Coordinates{Latitude: 53.9, Longitude: 27.56},
	}
}

// pendingProperty создает объявление и отправляет его на проверку
func (f *fixture) pendingProperty(t *testing.T, owner uuid.UUID) *domain.Property {
	t.Helper()
	ctx := context.Background()
	p, err := f.createUC().Execute(ctx, owner, completeFields(), nil)
	require.NoError(t, err)
	_, err = f.submitUC().Execute(ctx, p.ID)
	require.NoError(t, err)
	return p
}

func reviewerInput(decision domain.Decision, reviewer domain.Profile, reason string) domain.DecisionInput {
	return domain.DecisionInput{
		Decision:        decision,
		RejectionReason: reason,
		Reviewer:        reviewer.Snapshot(),
	}
}
