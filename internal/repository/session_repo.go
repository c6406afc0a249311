package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vmforge/internal/domain"
)

// SessionRepository define el contrato de persistencia para sesiones.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (int64, error)
	GetUserByToken(ctx context.Context, token string, now time.Time) (domain.User, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PgSessionRepository implementa SessionRepository usando pgxpool.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) (int64, error) {
	const query = `
		INSERT INTO sessions (user_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		session.UserID,
		session.Token,
		session.CreatedAt,
		session.ExpiresAt,
	).Scan(&id)
	return id, err
}

// GetUserByToken resuelve el usuario dueño de una sesión viva. Sesiones
// expiradas o borradas devuelven pgx.ErrNoRows.
func (r *PgSessionRepository) GetUserByToken(ctx context.Context, token string, now time.Time) (domain.User, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.password_hash, COALESCE(u.company, ''), u.created_at, u.last_login
		FROM users u
		JOIN sessions s ON s.user_id = u.id
		WHERE s.token = $1 AND s.expires_at > $2
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, token, now).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Company,
		&u.CreatedAt,
		&u.LastLogin,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *PgSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	const query = `
		DELETE FROM sessions WHERE token = $1
	`
	_, err := r.pool.Exec(ctx, query, token)
	return err
}

func (r *PgSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		DELETE FROM sessions WHERE expires_at <= $1
	`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
