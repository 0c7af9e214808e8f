package postgres_adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresInboxDispatcher доставляет уведомления во входящие (таблица notifications).
type PostgresInboxDispatcher struct {
	pool *pgxpool.Pool
}

func NewPostgresInboxDispatcher(pool *pgxpool.Pool) (*PostgresInboxDispatcher, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresInboxDispatcher{pool: pool}, nil
}

// Send идемпотентен по id: повторная доставка из очереди не создаст дубликат
func (d *PostgresInboxDispatcher) Send(ctx context.Context, record domain.NotificationRecord) error {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":       "PostgresInboxDispatcher",
		"notification_id": record.ID.String(),
		"recipient_id":    record.RecipientID.String(),
	})

	payload := record.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO notifications (id, recipient_id, type, title, message, payload, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, false, now())
		ON CONFLICT (id) DO NOTHING
	`
	cmdTag, err := d.pool.Exec(ctx, query, record.ID, record.RecipientID, string(record.Type), record.Title, record.Message, string(raw))
	if err != nil {
		repoLogger.Error("Failed to insert notification", err, nil)
		return domain.NewDispatchError("insert notification", err)
	}
	if cmdTag.RowsAffected() == 0 {
		repoLogger.Debug("Notification already delivered", nil)
	}
	return nil
}
