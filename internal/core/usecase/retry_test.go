package usecase

import (
	"context"
	"errors"
	"testing"

	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_RetriesOnlyGatewayErrors(t *testing.T) {
	logger := contextkeys.NoopLogger()
	ctx := context.Background()

	calls := 0
	_, err := withRetry(ctx, fastRetry, logger, "op", func() (int, error) {
		calls++
		return 0, domain.NewValidationError("bad", "x")
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, calls)

	calls = 0
	_, err = withRetry(ctx, fastRetry, logger, "op", func() (int, error) {
		calls++
		return 0, domain.NewPersistenceError("query", errors.New("timeout"))
	})
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 3, calls)

	calls = 0
	v, err := withRetry(ctx, fastRetry, logger, "op", func() (int, error) {
		calls++
		if calls < 2 {
			return 0, domain.NewStorageError("put", errors.New("reset"))
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
}
