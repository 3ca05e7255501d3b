package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Janus/internal/janus/store"
)

// AccessEventStore is an in-memory append-only log of emitted access
// events. It is intended for use in tests and dev environments.
type AccessEventStore struct {
	mu     sync.Mutex
	events []store.AccessEventRecord
}

func NewAccessEventStore() *AccessEventStore {
	return &AccessEventStore{}
}

func (s *AccessEventStore) RecordEvent(_ context.Context, rec store.AccessEventRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

func (s *AccessEventStore) LastEvent(_ context.Context, lockID int64, channel string) (*store.AccessEventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *store.AccessEventRecord
	for i := range s.events {
		ev := s.events[i]
		if ev.LockID != lockID || ev.Channel != channel {
			continue
		}
		if best == nil || ev.OccurredAt.After(best.OccurredAt) || ev.OccurredAt.Equal(best.OccurredAt) {
			rec := ev
			best = &rec
		}
	}
	return best, nil
}

func (s *AccessEventStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, ev := range s.events {
		if ev.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

// Events returns a copy of all recorded events. Test-only helper.
func (s *AccessEventStore) Events() []store.AccessEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessEventRecord, len(s.events))
	copy(out, s.events)
	return out
}
