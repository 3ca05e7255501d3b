package store

import (
	"context"
	"time"
)

// AccessEventRecord captures one emitted access event for the audit log.
// It mirrors the published event payload closely enough that the HTTP API
// can serve last-access views without replaying log records.
type AccessEventRecord struct {
	LockID          int64
	Channel         string // bus channel the event was published on
	User            string
	OriginalName    string
	AccessMethod    string
	Action          int
	Trigger         int
	Source          int
	AuthID          string
	State           int
	DetectionReason string
	RawDate         string // timestamp exactly as the feed sent it
	OccurredAt      time.Time
	RecordedAt      time.Time
}

// AccessEventStore persists emitted access events as an append-only audit
// log.
type AccessEventStore interface {
	RecordEvent(ctx context.Context, rec AccessEventRecord) error

	// LastEvent returns the most recent event for a lock on the given
	// bus channel, or nil when none has been recorded.
	LastEvent(ctx context.Context, lockID int64, channel string) (*AccessEventRecord, error)

	// PruneOlderThan deletes events that occurred before cutoff and
	// returns how many rows were removed.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// LockRecord is the persisted view of a discovered smartlock.
type LockRecord struct {
	LockID          int64
	Name            string
	State           string
	BatteryCritical bool
	BatteryLevel    *int
	Available       bool
	LastSeen        time.Time
}

// LockStore tracks the smartlocks discovered from the API.
type LockStore interface {
	UpsertLock(ctx context.Context, rec LockRecord) error
	Locks(ctx context.Context) ([]LockRecord, error)
	Lock(ctx context.Context, lockID int64) (*LockRecord, error)
}
