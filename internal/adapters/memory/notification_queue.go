package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"listing-service/internal/core/port/usecases_port"

	"github.com/cenkalti/backoff/v5"
)

var ErrQueueClosed = errors.New("notification queue is closed")

// NotificationQueue - очередь уведомлений внутри процесса. Реализует и
// NotificationQueuePort (сторона use case'ов), и EventListenerPort (цикл доставки).
type NotificationQueue struct {
	ch         chan domain.NotificationRecord
	handler    usecases_port.DispatchNotificationUseCasePort
	logger     port.LoggerPort
	maxRetries int

	// Задержки между повторами доставки одной записи
	initialInterval time.Duration
	maxInterval     time.Duration

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewNotificationQueue(buffer, maxRetries int, handler usecases_port.DispatchNotificationUseCasePort, logger port.LoggerPort) *NotificationQueue {
	if buffer < 1 {
		buffer = 64
	}
	return &NotificationQueue{
		ch:         make(chan domain.NotificationRecord, buffer),
		handler:    handler,
		logger:     logger.WithFields(port.Fields{"component": "MemoryNotificationQueue"}),
		maxRetries: maxRetries,
		done:       make(chan struct{}),

		initialInterval: 100 * time.Millisecond,
		maxInterval:     5 * time.Second,
	}
}

// WithBackoff задает задержки между повторами доставки. Вызывать до Start.
func (q *NotificationQueue) WithBackoff(initial, maxWait time.Duration) *NotificationQueue {
	q.initialInterval = initial
	q.maxInterval = maxWait
	return q
}

func (q *NotificationQueue) Enqueue(ctx context.Context, record domain.NotificationRecord) error {
	select {
	case <-q.done:
		return domain.NewDispatchError("enqueue", ErrQueueClosed)
	default:
	}
	select {
	case q.ch <- record:
		return nil
	case <-q.done:
		return domain.NewDispatchError("enqueue", ErrQueueClosed)
	case <-ctx.Done():
		return domain.NewDispatchError("enqueue", ctx.Err())
	}
}

// Start обрабатывает записи, пока не отменен контекст или не вызван Close.
// wg.Add и закрытие идут под одним мьютексом: Close либо дождется цикла,
// либо цикл не запустится.
func (q *NotificationQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.wg.Add(1)
	q.mu.Unlock()
	defer q.wg.Done()

	q.logger.Info("Dispatch loop started", nil)
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("Dispatch loop stopped by context", nil)
			return nil
		case <-q.done:
			q.logger.Info("Dispatch loop stopped", nil)
			return nil
		case record := <-q.ch:
			q.deliver(ctx, record)
		}
	}
}

// deliver повторяет доставку с экспоненциальной задержкой, не больше maxRetries повторов.
// Ошибка валидации не повторяется.
func (q *NotificationQueue) deliver(ctx context.Context, record domain.NotificationRecord) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.initialInterval
	b.MaxInterval = q.maxInterval

	maxTries := uint(1)
	if q.maxRetries > 0 {
		maxTries += uint(q.maxRetries)
	}

	operation := func() (struct{}, error) {
		err := q.handler.Execute(ctx, record)
		if err != nil && errors.Is(err, domain.ErrValidation) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	notify := func(err error, wait time.Duration) {
		q.logger.Warn("Notification delivery failed, retrying", port.Fields{
			"notification_id": record.ID.String(),
			"error":           err.Error(),
			"wait":            wait.String(),
		})
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(notify),
	)
	if err != nil {
		q.logger.Error("Notification dropped after retries", err, port.Fields{
			"notification_id": record.ID.String(),
			"recipient_id":    record.RecipientID.String(),
		})
	}
}

// Close останавливает цикл и ждет завершения текущей доставки.
// Безопасен до Start и при повторном вызове.
func (q *NotificationQueue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

// Pending - сколько записей ждет доставки
func (q *NotificationQueue) Pending() int {
	return len(q.ch)
}
