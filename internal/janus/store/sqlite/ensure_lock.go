package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ensureLock guarantees a locks row exists for the given lockID so that
// the foreign-key constraint from access_events is satisfied. New rows
// start with an empty name; the next discovery cycle fills it in.
//
// Must be called inside an existing transaction.
func ensureLock(ctx context.Context, tx *sql.Tx, lockID int64, nowMs int64) error {
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO locks(lock_id, created_at_ms, updated_at_ms)
VALUES (?, ?, ?);
`, lockID, nowMs, nowMs); err != nil {
		return fmt.Errorf("ensureLock %d: %w", lockID, err)
	}
	return nil
}
