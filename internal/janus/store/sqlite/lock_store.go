package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Janus/internal/db"
	"github.com/BrandonDHaskell/Janus/internal/janus/store"
)

type LockStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLockStore(db *sql.DB, writer *dbpkg.Worker) *LockStore {
	return &LockStore{db: db, writer: writer}
}

func (s *LockStore) UpsertLock(ctx context.Context, rec store.LockRecord) error {
	now := time.Now().UTC().UnixMilli()

	var lastSeenMs any
	if !rec.LastSeen.IsZero() {
		lastSeenMs = rec.LastSeen.UTC().UnixMilli()
	}

	var batteryCritical, available int
	if rec.BatteryCritical {
		batteryCritical = 1
	}
	if rec.Available {
		available = 1
	}

	var batteryLevel any
	if rec.BatteryLevel != nil {
		batteryLevel = *rec.BatteryLevel
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO locks(
  lock_id, name, state, battery_critical, battery_level,
  available, last_seen_ms, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(lock_id) DO UPDATE SET
  name = excluded.name,
  state = excluded.state,
  battery_critical = excluded.battery_critical,
  battery_level = excluded.battery_level,
  available = excluded.available,
  last_seen_ms = excluded.last_seen_ms,
  updated_at_ms = excluded.updated_at_ms;
`,
			rec.LockID, rec.Name, rec.State, batteryCritical, batteryLevel,
			available, lastSeenMs, now, now,
		); err != nil {
			return fmt.Errorf("UpsertLock %d: %w", rec.LockID, err)
		}
		return nil
	})
}

func (s *LockStore) Locks(ctx context.Context) ([]store.LockRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT lock_id, name, state, battery_critical, battery_level, available, last_seen_ms
FROM locks
ORDER BY lock_id;
`)
	if err != nil {
		return nil, fmt.Errorf("Locks: %w", err)
	}
	defer rows.Close()

	var out []store.LockRecord
	for rows.Next() {
		rec, err := scanLock(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("Locks scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *LockStore) Lock(ctx context.Context, lockID int64) (*store.LockRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT lock_id, name, state, battery_critical, battery_level, available, last_seen_ms
FROM locks
WHERE lock_id = ?;
`, lockID)

	rec, err := scanLock(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Lock %d: %w", lockID, err)
	}
	return &rec, nil
}

func scanLock(scan func(dest ...any) error) (store.LockRecord, error) {
	var rec store.LockRecord
	var batteryCritical, available int
	var batteryLevel sql.NullInt64
	var lastSeenMs sql.NullInt64

	if err := scan(
		&rec.LockID, &rec.Name, &rec.State, &batteryCritical,
		&batteryLevel, &available, &lastSeenMs,
	); err != nil {
		return store.LockRecord{}, err
	}

	rec.BatteryCritical = batteryCritical != 0
	rec.Available = available != 0
	if batteryLevel.Valid {
		lvl := int(batteryLevel.Int64)
		rec.BatteryLevel = &lvl
	}
	if lastSeenMs.Valid {
		rec.LastSeen = time.UnixMilli(lastSeenMs.Int64).UTC()
	}
	return rec, nil
}
