package postgres_adapter

import (
	"encoding/json"
	"errors"
	"listing-service/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// persistenceErr оборачивает ошибку драйвера в ошибку шлюза, если это не доменная ошибка
func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrPropertyNotFound) || errors.Is(err, domain.ErrProfileNotFound) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514": // check_violation
			var fields []string
			if pgErr.ColumnName != "" {
				fields = append(fields, pgErr.ColumnName)
			}
			return domain.NewValidationError("value rejected by database constraint "+pgErr.ConstraintName, fields...)
		case "23503": // foreign_key_violation
			return domain.ErrPropertyNotFound
		}
	}
	return domain.NewPersistenceError(op, err)
}

// nullableJSON возвращает nil для SQL NULL или строку JSON для jsonb
func nullableJSON(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
