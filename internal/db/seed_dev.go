package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// LockID and LockName pre-create a lock row so the HTTP API has
	// something to show before the first successful poll.
	LockID   int64
	LockName string
}

func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	if opt.LockID == 0 {
		opt.LockID = 1
	}
	if opt.LockName == "" {
		opt.LockName = "Dev Lock"
	}

	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT INTO locks(lock_id, name, state, created_at_ms, updated_at_ms)
VALUES (?, ?, 'undefined', ?, ?)
ON CONFLICT(lock_id) DO UPDATE SET
  name = excluded.name,
  updated_at_ms = excluded.updated_at_ms;
`, opt.LockID, opt.LockName, now, now); err != nil {
		return fmt.Errorf("seed lock %d: %w", opt.LockID, err)
	}

	return nil
}
