package postgres_adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresHistoryRepository - чтение журнала решений модерации.
type PostgresHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresHistoryRepository(pool *pgxpool.Pool) (*PostgresHistoryRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresHistoryRepository{pool: pool}, nil
}

// insertHistoryEntry пишет запись журнала в рамках транзакции перехода.
// Идемпотентна по id.
func insertHistoryEntry(ctx context.Context, tx pgx.Tx, entry domain.VerificationHistoryEntry) error {
	reviewer, err := json.Marshal(entry.Reviewer)
	if err != nil {
		return fmt.Errorf("failed to marshal reviewer: %w", err)
	}

	query := `
		INSERT INTO verification_history (id, property_id, status, notes, rejection_reason, reviewer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = tx.Exec(ctx, query,
		entry.ID, entry.PropertyID, string(entry.Status), entry.Notes, entry.RejectionReason, string(reviewer), entry.CreatedAt,
	)
	return err
}

func (r *PostgresHistoryRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.VerificationHistoryEntry, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PostgresHistoryRepository",
		"method":      "ListByProperty",
		"property_id": propertyID.String(),
	})

	query := `
		SELECT id, property_id, status, notes, rejection_reason, reviewer, created_at
		FROM verification_history
		WHERE property_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, propertyID)
	if err != nil {
		repoLogger.Error("Failed to query history", err, nil)
		return nil, persistenceErr("list history", err)
	}
	defer rows.Close()

	entries := []domain.VerificationHistoryEntry{}
	for rows.Next() {
		var (
			e        domain.VerificationHistoryEntry
			status   string
			reviewer []byte
		)
		if err := rows.Scan(&e.ID, &e.PropertyID, &status, &e.Notes, &e.RejectionReason, &reviewer, &e.CreatedAt); err != nil {
			return nil, persistenceErr("scan history", err)
		}
		e.Status = domain.PropertyStatus(status)
		if err := json.Unmarshal(reviewer, &e.Reviewer); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reviewer: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate history", err)
	}
	return entries, nil
}
