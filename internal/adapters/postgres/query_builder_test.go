package postgres_adapter

import (
	"testing"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestApplyPendingFilters(t *testing.T) {
	owner := uuid.New()
	min, max := 10.0, 20.0

	qb := applyPendingFilters(domain.PendingFilters{OwnerID: &owner, Category: "house", PriceMin: &min, PriceMax: &max})
	assert.Equal(t,
		"WHERE status = 'pending_verification' AND owner_id = $1 AND category = $2 AND price >= $3 AND price <= $4",
		qb.where())
	assert.Equal(t, []interface{}{owner, "house", 10.0, 20.0}, qb.args)

	limit := qb.nextArg(5)
	offset := qb.nextArg(0)
	assert.Equal(t, "$5", limit)
	assert.Equal(t, "$6", offset)
}

func TestApplyPendingFilters_Empty(t *testing.T) {
	qb := applyPendingFilters(domain.PendingFilters{})
	assert.Equal(t, "WHERE status = 'pending_verification'", qb.where())
	assert.Empty(t, qb.args)
}
