package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Janus/internal/db"
	"github.com/BrandonDHaskell/Janus/internal/janus/store"
)

type AccessEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessEventStore(db *sql.DB, writer *dbpkg.Worker) *AccessEventStore {
	return &AccessEventStore{db: db, writer: writer}
}

func (s *AccessEventStore) RecordEvent(ctx context.Context, rec store.AccessEventRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	occurredMs := rec.OccurredAt.UTC().UnixMilli()
	recordedMs := rec.RecordedAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// The lock row normally exists from discovery; guarantee it so
		// the foreign key holds even for a lock first seen mid-run.
		if err := ensureLock(ctx, tx, rec.LockID, recordedMs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  lock_id, channel, user_name, original_name, access_method,
  action, trigger_type, source, auth_id, state,
  detection_reason, raw_date, occurred_at_ms, recorded_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.LockID, rec.Channel, rec.User, rec.OriginalName, rec.AccessMethod,
			rec.Action, rec.Trigger, rec.Source, rec.AuthID, rec.State,
			rec.DetectionReason, rec.RawDate, occurredMs, recordedMs,
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}

		return nil
	})
}

func (s *AccessEventStore) LastEvent(ctx context.Context, lockID int64, channel string) (*store.AccessEventRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT lock_id, channel, user_name, original_name, access_method,
       action, trigger_type, source, auth_id, state,
       detection_reason, raw_date, occurred_at_ms, recorded_at_ms
FROM access_events
WHERE lock_id = ? AND channel = ?
ORDER BY occurred_at_ms DESC, id DESC
LIMIT 1;
`, lockID, channel)

	var rec store.AccessEventRecord
	var occurredMs, recordedMs int64
	err := row.Scan(
		&rec.LockID, &rec.Channel, &rec.User, &rec.OriginalName, &rec.AccessMethod,
		&rec.Action, &rec.Trigger, &rec.Source, &rec.AuthID, &rec.State,
		&rec.DetectionReason, &rec.RawDate, &occurredMs, &recordedMs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LastEvent: %w", err)
	}

	rec.OccurredAt = time.UnixMilli(occurredMs).UTC()
	rec.RecordedAt = time.UnixMilli(recordedMs).UTC()
	return &rec, nil
}

func (s *AccessEventStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM access_events WHERE occurred_at_ms < ?;",
			cutoff.UTC().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
