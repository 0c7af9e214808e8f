package usecase

import (
	"context"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy - параметры повторов для вызовов шлюзов
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	return b
}

// withRetry повторяет fn с экспоненциальной задержкой, но только для ошибок шлюзов.
// Валидация, конфликт и "не найдено" возвращаются сразу.
// Вызывать только для идемпотентных операций.
func withRetry[T any](ctx context.Context, policy RetryPolicy, logger port.LoggerPort, op string, fn func() (T, error)) (T, error) {
	maxTries := policy.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}

	operation := func() (T, error) {
		res, err := fn()
		if err != nil && !domain.IsGatewayError(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Gateway call failed, retrying", port.Fields{
			"operation": op,
			"error":     err.Error(),
			"wait":      wait.String(),
		})
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(notify),
	)
}

// withRetryErr - вариант withRetry для операций без результата
func withRetryErr(ctx context.Context, policy RetryPolicy, logger port.LoggerPort, op string, fn func() error) error {
	_, err := withRetry(ctx, policy, logger, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func utcNow() time.Time {
	return time.Now().UTC()
}
