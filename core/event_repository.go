package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthEvent is one row of the login/logout audit trail.
type AuthEvent struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Kind      string    `json:"kind"` // login|logout
	CreatedAt time.Time `json:"created_at"`
}

const (
	EventLogin  = "login"
	EventLogout = "logout"
)

// AuthEventRepository defines persistence operations for the audit trail.
type AuthEventRepository interface {
	Insert(ctx context.Context, username, kind string) error
	List(ctx context.Context, page, perPage int) ([]AuthEvent, int, error)
	CountByUser(ctx context.Context, username string) (int, error)
}

// PgAuthEventRepository implements AuthEventRepository using pgxpool.
//
// Expected schema:
//
//	CREATE TABLE auth_events (
//	    id         BIGSERIAL PRIMARY KEY,
//	    username   TEXT NOT NULL,
//	    kind       TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PgAuthEventRepository struct {
	db *pgxpool.Pool
}

func NewPgAuthEventRepository(db *pgxpool.Pool) *PgAuthEventRepository {
	return &PgAuthEventRepository{db: db}
}

func (r *PgAuthEventRepository) Insert(ctx context.Context, username, kind string) error {
	if kind != EventLogin && kind != EventLogout {
		return errors.New("invalid event kind")
	}
	const q = `INSERT INTO auth_events (username, kind) VALUES ($1,$2)`
	_, err := r.db.Exec(ctx, q, username, kind)
	return err
}

// List returns the newest events first.
func (r *PgAuthEventRepository) List(ctx context.Context, page, perPage int) ([]AuthEvent, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	const countQ = `SELECT COUNT(*) FROM auth_events`
	var total int
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
SELECT id, username, kind, created_at
FROM auth_events
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2
`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]AuthEvent, 0, perPage)
	for rows.Next() {
		var e AuthEvent
		if err := rows.Scan(&e.ID, &e.Username, &e.Kind, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *PgAuthEventRepository) CountByUser(ctx context.Context, username string) (int, error) {
	const q = `SELECT COUNT(*) FROM auth_events WHERE username=$1`
	var n int
	if err := r.db.QueryRow(ctx, q, username).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
