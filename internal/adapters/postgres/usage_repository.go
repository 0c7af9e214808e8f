package postgres_adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresUsageRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUsageRepository(pool *pgxpool.Pool) (*PostgresUsageRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresUsageRepository{pool: pool}, nil
}

// Record: инкремент счетчика и запись события в одной транзакции.
// Инкремент выполняется в SQL, без чтения текущего значения.
func (r *PostgresUsageRepository) Record(ctx context.Context, event domain.UsageEvent) error {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PostgresUsageRepository",
		"method":      "Record",
		"property_id": event.PropertyID.String(),
		"kind":        string(event.Kind),
	})

	var counterQuery string
	switch event.Kind {
	case domain.UsageView:
		counterQuery = `UPDATE properties SET views = views + 1 WHERE id = $1`
	case domain.UsageInquiry:
		counterQuery = `UPDATE properties SET inquiries = inquiries + 1 WHERE id = $1`
	default:
		return domain.NewValidationError("unknown usage kind", "kind")
	}

	inquiry, err := nullableJSON(event.Inquiry, event.Inquiry == nil)
	if err != nil {
		return fmt.Errorf("failed to marshal inquiry: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		repoLogger.Error("Failed to begin transaction", err, nil)
		return persistenceErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx, counterQuery, event.PropertyID)
	if err != nil {
		repoLogger.Error("Failed to increment counter", err, nil)
		return persistenceErr("increment counter", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPropertyNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO usage_events (id, property_id, actor_id, kind, inquiry, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
	`, event.ID, event.PropertyID, event.ActorID, string(event.Kind), inquiry, event.CreatedAt)
	if err != nil {
		repoLogger.Error("Failed to insert usage event", err, nil)
		return persistenceErr("insert usage event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		repoLogger.Error("Failed to commit usage event", err, nil)
		return persistenceErr("commit usage event", err)
	}
	return nil
}

func (r *PostgresUsageRepository) ListEvents(ctx context.Context, propertyID uuid.UUID, from, to time.Time) ([]domain.UsageEvent, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PostgresUsageRepository",
		"method":      "ListEvents",
		"property_id": propertyID.String(),
	})

	query := `
		SELECT id, property_id, actor_id, kind, inquiry, created_at
		FROM usage_events
		WHERE property_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, propertyID, from, to)
	if err != nil {
		repoLogger.Error("Failed to query usage events", err, nil)
		return nil, persistenceErr("list usage events", err)
	}
	defer rows.Close()

	var events []domain.UsageEvent
	for rows.Next() {
		var (
			e       domain.UsageEvent
			kind    string
			inquiry []byte
		)
		if err := rows.Scan(&e.ID, &e.PropertyID, &e.ActorID, &kind, &inquiry, &e.CreatedAt); err != nil {
			return nil, persistenceErr("scan usage event", err)
		}
		e.Kind = domain.UsageKind(kind)
		if len(inquiry) > 0 {
			var payload domain.InquiryPayload
			if err := json.Unmarshal(inquiry, &payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal inquiry: %w", err)
			}
			e.Inquiry = &payload
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate usage events", err)
	}
	return events, nil
}
