package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
)

// CursorRepo persists per-account stream cursors so payment watchers resume
// where they left off after a restart instead of replaying history.
type CursorRepo struct {
	db *DB
}

func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

func (r *CursorRepo) Get(ctx context.Context, account string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var sc model.StreamCursor
	err := r.db.QueryRowContext(ctx,
		"SELECT account, cursor, updated_at FROM stream_cursors WHERE account = $1", account,
	).Scan(&sc.Account, &sc.Cursor, &sc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get cursor for %s: %w", account, err)
	}
	return sc.Cursor, nil
}

func (r *CursorRepo) Set(ctx context.Context, account, cursor string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stream_cursors (account, cursor, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account) DO UPDATE SET cursor = EXCLUDED.cursor, updated_at = now()
	`, account, cursor)
	if err != nil {
		return fmt.Errorf("set cursor for %s: %w", account, err)
	}
	return nil
}

var _ store.CursorRepository = (*CursorRepo)(nil)
