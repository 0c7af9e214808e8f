package postgres_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const propertyColumns = `
	id, owner_id, title, description, price, location, category, bedrooms, bathrooms, area,
	images, documents, amenities, latitude, longitude, geohash, status, views, inquiries,
	verification_notes, verified_by, verified_at, rejection_reason, submitted_at, created_at, updated_at`

// PostgresPropertyRepository - реализация PropertyRepositoryPort для PostgreSQL.
type PostgresPropertyRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPropertyRepository(pool *pgxpool.Pool) (*PostgresPropertyRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresPropertyRepository{pool: pool}, nil
}

func (r *PostgresPropertyRepository) logger(ctx context.Context, method string, id uuid.UUID) port.LoggerPort {
	return contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PostgresPropertyRepository",
		"method":      method,
		"property_id": id.String(),
	})
}

func scanProperty(row pgx.Row) (*domain.Property, error) {
	var (
		p          domain.Property
		lat, lon   *float64
		verifiedBy []byte
		status     string
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Price, &p.Location, &p.Category,
		&p.Bedrooms, &p.Bathrooms, &p.Area,
		&p.Images, &p.Documents, &p.Amenities, &lat, &lon, &p.Geohash, &status, &p.Views, &p.Inquiries,
		&p.VerificationNotes, &verifiedBy, &p.VerifiedAt, &p.RejectionReason, &p.SubmittedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PropertyStatus(status)
	if lat != nil && lon != nil {
		p.Coordinates = &domain.Coordinates{Latitude: *lat, Longitude: *lon}
	}
	if len(verifiedBy) > 0 {
		var snapshot domain.ReviewerSnapshot
		if err := json.Unmarshal(verifiedBy, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verified_by: %w", err)
		}
		p.VerifiedBy = &snapshot
	}
	p.Images = nonNil(p.Images)
	p.Documents = nonNil(p.Documents)
	p.Amenities = nonNil(p.Amenities)
	return &p, nil
}

func coordinateArgs(c *domain.Coordinates) (lat, lon *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Latitude, &c.Longitude
}

// Create вставляет новый черновик.
func (r *PostgresPropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	repoLogger := r.logger(ctx, "Create", p.ID)
	repoLogger.Debug("Creating property in DB", nil)

	lat, lon := coordinateArgs(p.Coordinates)
	query := `
		INSERT INTO properties (
			id, owner_id, title, description, price, location, category, bedrooms, bathrooms, area,
			images, documents, amenities, latitude, longitude, geohash, status, views, inquiries,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.OwnerID, p.Title, p.Description, p.Price, p.Location, p.Category,
		p.Bedrooms, p.Bathrooms, p.Area,
		nonNil(p.Images), nonNil(p.Documents), nonNil(p.Amenities), lat, lon, p.Geohash,
		string(p.Status), p.Views, p.Inquiries,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		repoLogger.Error("Failed to create property", err, nil)
		return persistenceErr("create property", err)
	}

	repoLogger.Debug("Property created successfully", nil)
	return nil
}

func (r *PostgresPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	repoLogger := r.logger(ctx, "FindByID", id)

	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	p, err := scanProperty(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			repoLogger.Debug("Property not found", nil)
			return nil, domain.ErrPropertyNotFound
		}
		repoLogger.Error("Failed to find property by ID", err, nil)
		return nil, persistenceErr("find property", err)
	}
	return p, nil
}

// Update сохраняет только редактируемые владельцем поля, поэтому не может
// затереть статус, записанный параллельным переходом. Условие по статусу
// входит в тот же UPDATE, отдельной проверки перед записью нет.
func (r *PostgresPropertyRepository) Update(ctx context.Context, p *domain.Property) error {
	repoLogger := r.logger(ctx, "Update", p.ID)

	lat, lon := coordinateArgs(p.Coordinates)
	query := `
		UPDATE properties
		SET
			title = $2, description = $3, price = $4, location = $5, category = $6,
			bedrooms = $7, bathrooms = $8, area = $9, amenities = $10,
			latitude = $11, longitude = $12, geohash = $13, updated_at = $14
		WHERE id = $1 AND status = ANY($15::text[])
	`
	cmdTag, err := r.pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.Location, p.Category,
		p.Bedrooms, p.Bathrooms, p.Area, nonNil(p.Amenities),
		lat, lon, p.Geohash, p.UpdatedAt, editableStatuses(),
	)
	if err != nil {
		repoLogger.Error("Failed to update property", err, nil)
		return persistenceErr("update property", err)
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}

	actual, err := currentStatus(ctx, r.pool, p.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrPropertyNotFound) {
			repoLogger.Error("Failed to read current status after rejected update", err, nil)
		}
		return err
	}
	repoLogger.Warn("Update rejected by status guard", port.Fields{"actual": string(actual)})
	return domain.NewEditConflict(actual)
}

func editableStatuses() []string {
	out := make([]string, 0, len(domain.EditableStatuses))
	for _, st := range domain.EditableStatuses {
		out = append(out, string(st))
	}
	return out
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// currentStatus читает статус после условной записи, не затронувшей ни одной строки
func currentStatus(ctx context.Context, q rowQuerier, id uuid.UUID) (domain.PropertyStatus, error) {
	var actual string
	err := q.QueryRow(ctx, `SELECT status FROM properties WHERE id = $1`, id).Scan(&actual)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrPropertyNotFound
		}
		return "", persistenceErr("read status", err)
	}
	return domain.PropertyStatus(actual), nil
}

const transitionQuery = `
		UPDATE properties
		SET
			status = $3,
			verification_notes = $4,
			verified_by = $5::jsonb,
			verified_at = $6,
			rejection_reason = $7,
			submitted_at = COALESCE($8::timestamptz, submitted_at),
			updated_at = $9
		WHERE id = $1 AND status = $2
		RETURNING ` + propertyColumns

// applyTransition выполняет условный UPDATE через пул или транзакцию.
// Если ни одна строка не обновлена, возвращает ErrPropertyNotFound или ConflictError.
func applyTransition(ctx context.Context, q rowQuerier, repoLogger port.LoggerPort, id uuid.UUID, t domain.StatusTransition) (*domain.Property, error) {
	verifiedBy, err := nullableJSON(t.VerifiedBy, t.VerifiedBy == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verified_by: %w", err)
	}

	p, err := scanProperty(q.QueryRow(ctx, transitionQuery,
		id, string(t.From), string(t.To), t.VerificationNotes, verifiedBy, t.VerifiedAt,
		t.RejectionReason, t.SubmittedAt, t.At,
	))
	if err == nil {
		repoLogger.Debug("Status transitioned", nil)
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		repoLogger.Error("Failed to transition status", err, nil)
		return nil, persistenceErr("transition status", err)
	}

	// Ни одна строка не обновлена: либо объявления нет, либо статус уже другой
	actual, err := currentStatus(ctx, q, id)
	if err != nil {
		if !errors.Is(err, domain.ErrPropertyNotFound) {
			repoLogger.Error("Failed to read current status after rejected transition", err, nil)
		}
		return nil, err
	}
	repoLogger.Debug("Transition rejected by status guard", port.Fields{"actual": string(actual)})
	return nil, domain.NewStatusConflict(t.From, actual)
}

// TransitionStatus - compare-and-set: одно условное обновление по текущему статусу.
func (r *PostgresPropertyRepository) TransitionStatus(ctx context.Context, id uuid.UUID, t domain.StatusTransition) (*domain.Property, error) {
	repoLogger := r.logger(ctx, "TransitionStatus", id).WithFields(port.Fields{
		"from": string(t.From),
		"to":   string(t.To),
	})
	return applyTransition(ctx, r.pool, repoLogger, id, t)
}

// TransitionWithHistory: условный UPDATE и вставка в verification_history
// в одной транзакции. Решение без записи в журнале не фиксируется.
func (r *PostgresPropertyRepository) TransitionWithHistory(ctx context.Context, id uuid.UUID, t domain.StatusTransition) (*domain.Property, *domain.VerificationHistoryEntry, error) {
	repoLogger := r.logger(ctx, "TransitionWithHistory", id).WithFields(port.Fields{
		"from": string(t.From),
		"to":   string(t.To),
	})

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		repoLogger.Error("Failed to begin transaction", err, nil)
		return nil, nil, persistenceErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	p, err := applyTransition(ctx, tx, repoLogger, id, t)
	if err != nil {
		return nil, nil, err
	}

	entry := domain.NewHistoryEntry(p)
	if err := insertHistoryEntry(ctx, tx, entry); err != nil {
		repoLogger.Error("Failed to append history entry", err, port.Fields{"entry_id": entry.ID.String()})
		return nil, nil, persistenceErr("append history", err)
	}

	if err := tx.Commit(ctx); err != nil {
		repoLogger.Error("Failed to commit transition", err, nil)
		return nil, nil, persistenceErr("commit transition", err)
	}
	return p, &entry, nil
}

func mediaColumn(kind domain.MediaKind) string {
	if kind == domain.MediaDocuments {
		return "documents"
	}
	return "images"
}

// AppendMedia дописывает ссылки в конец списка одним UPDATE
func (r *PostgresPropertyRepository) AppendMedia(ctx context.Context, id uuid.UUID, kind domain.MediaKind, urls []string, at time.Time) error {
	repoLogger := r.logger(ctx, "AppendMedia", id)

	column := mediaColumn(kind)
	query := fmt.Sprintf(`UPDATE properties SET %[1]s = array_cat(%[1]s, $2::text[]), updated_at = $3 WHERE id = $1`, column)
	cmdTag, err := r.pool.Exec(ctx, query, id, urls, at)
	if err != nil {
		repoLogger.Error("Failed to append media", err, port.Fields{"column": column})
		return persistenceErr("append media", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPropertyNotFound
	}
	return nil
}

func (r *PostgresPropertyRepository) RemoveMedia(ctx context.Context, id uuid.UUID, kind domain.MediaKind, url string, at time.Time) error {
	repoLogger := r.logger(ctx, "RemoveMedia", id)

	column := mediaColumn(kind)
	query := fmt.Sprintf(`UPDATE properties SET %[1]s = array_remove(%[1]s, $2), updated_at = $3 WHERE id = $1`, column)
	cmdTag, err := r.pool.Exec(ctx, query, id, url, at)
	if err != nil {
		repoLogger.Error("Failed to remove media", err, port.Fields{"column": column})
		return persistenceErr("remove media", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPropertyNotFound
	}
	return nil
}

// FindPending возвращает страницу очереди модерации и общее число подходящих записей
func (r *PostgresPropertyRepository) FindPending(ctx context.Context, filters domain.PendingFilters, limit, offset int) ([]domain.Property, int, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresPropertyRepository",
		"method":    "FindPending",
		"limit":     limit,
		"offset":    offset,
	})

	qb := applyPendingFilters(filters)
	where := qb.where()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		repoLogger.Error("Failed to begin transaction", err, nil)
		return nil, 0, persistenceErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var total int
	countQuery := `SELECT COUNT(*) FROM properties ` + where
	if err := tx.QueryRow(ctx, countQuery, qb.args...).Scan(&total); err != nil {
		repoLogger.Error("Failed to count pending properties", err, port.Fields{"query": countQuery})
		return nil, 0, persistenceErr("count pending", err)
	}
	if total == 0 || offset >= total {
		return []domain.Property{}, total, nil
	}

	limitArg := qb.nextArg(limit)
	offsetArg := qb.nextArg(offset)
	dataQuery := fmt.Sprintf(`SELECT %s FROM properties %s ORDER BY submitted_at ASC, id ASC LIMIT %s OFFSET %s`,
		propertyColumns, where, limitArg, offsetArg)

	rows, err := tx.Query(ctx, dataQuery, qb.args...)
	if err != nil {
		repoLogger.Error("Failed to query pending properties", err, port.Fields{"query": dataQuery})
		return nil, 0, persistenceErr("query pending", err)
	}
	defer rows.Close()

	items := make([]domain.Property, 0, limit)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			repoLogger.Error("Failed to scan pending property", err, nil)
			return nil, 0, persistenceErr("scan pending", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, persistenceErr("iterate pending", err)
	}

	return items, total, nil
}
