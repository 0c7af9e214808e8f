package postgres_adapter

import (
	"context"
	"errors"
	"fmt"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileRepository(pool *pgxpool.Pool) (*PostgresProfileRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresProfileRepository{pool: pool}, nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p    domain.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.DisplayName, &p.Email, &role, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	return &p, nil
}

// EnsureProfile - insert-if-absent с обновлением роли. Гонку двух первых запросов
// одного пользователя разрешает ON CONFLICT. Роль из заголовка авторитетна:
// если она изменилась, строка обновляется в том же запросе, остальные поля не трогаются.
func (r *PostgresProfileRepository) EnsureProfile(ctx context.Context, profile domain.Profile) (*domain.Profile, bool, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "PostgresProfileRepository",
		"method":     "EnsureProfile",
		"profile_id": profile.ID.String(),
	})

	// xmax = 0 только у только что вставленной строки
	upsert := `
		INSERT INTO profiles (id, display_name, email, role, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role
		WHERE profiles.role <> EXCLUDED.role
		RETURNING id, display_name, email, role, created_at, (xmax = 0) AS inserted
	`
	var (
		p        domain.Profile
		role     string
		inserted bool
	)
	err := r.pool.QueryRow(ctx, upsert, profile.ID, profile.DisplayName, profile.Email, string(profile.Role)).
		Scan(&p.ID, &p.DisplayName, &p.Email, &role, &p.CreatedAt, &inserted)
	if err == nil {
		p.Role = domain.Role(role)
		if inserted {
			repoLogger.Debug("Profile inserted", nil)
		} else {
			repoLogger.Info("Profile role updated", port.Fields{"role": role})
		}
		return &p, inserted, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		repoLogger.Error("Failed to upsert profile", err, nil)
		return nil, false, persistenceErr("upsert profile", err)
	}

	// Профиль уже есть и роль не изменилась
	existing, err := r.FindByID(ctx, profile.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PostgresProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `SELECT id, display_name, email, role, created_at FROM profiles WHERE id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		contextkeys.LoggerFromContext(ctx).Error("Failed to find profile", err, port.Fields{
			"component":  "PostgresProfileRepository",
			"profile_id": id.String(),
		})
		return nil, persistenceErr("find profile", err)
	}
	return p, nil
}

func (r *PostgresProfileRepository) FindByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	query := `SELECT id, display_name, email, role, created_at FROM profiles WHERE role = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, persistenceErr("find profiles by role", err)
	}
	defer rows.Close()

	profiles := []domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, persistenceErr("scan profile", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate profiles", err)
	}
	return profiles, nil
}
