package postgres_adapter

import (
	"fmt"
	"listing-service/internal/core/domain"
	"strings"
)

type queryBuilder struct {
	conditions []string
	args       []interface{}
	argId      int
}

func newQueryBuilder(baseConditions ...string) *queryBuilder {
	return &queryBuilder{
		argId:      1,
		conditions: baseConditions,
		args:       make([]interface{}, 0),
	}
}

func (qb *queryBuilder) addCondition(condition string, fieldName string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, fieldName, qb.argId))
	qb.args = append(qb.args, arg)
	qb.argId++
}

// AddFloatFilter добавляет включающий диапазон
func (qb *queryBuilder) AddFloatFilter(fieldName string, min *float64, max *float64) {
	if min != nil {
		qb.addCondition("%s >= $%d", fieldName, *min)
	}
	if max != nil {
		qb.addCondition("%s <= $%d", fieldName, *max)
	}
}

// nextArg резервирует номер параметра для LIMIT/OFFSET
func (qb *queryBuilder) nextArg(arg interface{}) string {
	placeholder := fmt.Sprintf("$%d", qb.argId)
	qb.args = append(qb.args, arg)
	qb.argId++
	return placeholder
}

func (qb *queryBuilder) where() string {
	if len(qb.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(qb.conditions, " AND ")
}

// applyPendingFilters строит WHERE для очереди модерации
func applyPendingFilters(filters domain.PendingFilters) *queryBuilder {
	qb := newQueryBuilder("status = 'pending_verification'")

	if filters.OwnerID != nil {
		qb.addCondition("%s = $%d", "owner_id", *filters.OwnerID)
	}
	if filters.Category != "" {
		qb.addCondition("%s = $%d", "category", filters.Category)
	}
	qb.AddFloatFilter("price", filters.PriceMin, filters.PriceMax)

	return qb
}
