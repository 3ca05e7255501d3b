package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/BrandonDHaskell/Janus/internal/janus/store"
)

type LockStore struct {
	mu    sync.RWMutex
	locks map[int64]store.LockRecord
}

func NewLockStore() *LockStore {
	return &LockStore{locks: make(map[int64]store.LockRecord)}
}

func (s *LockStore) UpsertLock(_ context.Context, rec store.LockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[rec.LockID] = rec
	return nil
}

func (s *LockStore) Locks(_ context.Context) ([]store.LockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.LockRecord, 0, len(s.locks))
	for _, rec := range s.locks {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LockID < out[j].LockID })
	return out, nil
}

func (s *LockStore) Lock(_ context.Context, lockID int64) (*store.LockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.locks[lockID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
