package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo is the Postgres implementation of Repo.
type PGRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{db: db}
}

func (r *PGRepo) FindOrCreateBySessionID(ctx context.Context, sessionID string) (AnonymousUser, error) {
	const q = `
		INSERT INTO anonymous_users (session_id)
		VALUES ($1)
		ON CONFLICT (session_id)
		DO UPDATE SET last_seen_at = now()
		RETURNING id, session_id, created_at, last_seen_at`

	var u AnonymousUser
	err := r.db.QueryRowContext(ctx, q, sessionID).
		Scan(&u.ID, &u.SessionID, &u.CreatedAt, &u.LastSeenAt)
	if err != nil {
		return AnonymousUser{}, fmt.Errorf("upsert anonymous user: %w", err)
	}
	return u, nil
}

func (r *PGRepo) FindBySessionID(ctx context.Context, sessionID string) (AnonymousUser, error) {
	const q = `
		SELECT id, session_id, created_at, last_seen_at
		FROM anonymous_users
		WHERE session_id = $1`

	var u AnonymousUser
	err := r.db.QueryRowContext(ctx, q, sessionID).
		Scan(&u.ID, &u.SessionID, &u.CreatedAt, &u.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AnonymousUser{}, ErrNotFound
	}
	if err != nil {
		return AnonymousUser{}, fmt.Errorf("find anonymous user: %w", err)
	}
	return u, nil
}

var _ Repo = (*PGRepo)(nil)
