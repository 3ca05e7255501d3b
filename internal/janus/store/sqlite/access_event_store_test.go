package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Janus/internal/janus/bus"
	"github.com/BrandonDHaskell/Janus/internal/janus/store"
	sqlitestore "github.com/BrandonDHaskell/Janus/internal/janus/store/sqlite"
)

func keypadEvent(lockID int64, user string, occurredAt time.Time, rawDate string) store.AccessEventRecord {
	return store.AccessEventRecord{
		LockID:          lockID,
		Channel:         bus.ChannelKeypadAction,
		User:            user,
		OriginalName:    "Nuki Keypad",
		AccessMethod:    "fingerprint",
		Action:          1,
		Trigger:         255,
		Source:          2,
		AuthID:          "cred-1",
		State:           0,
		DetectionReason: "trigger_255_with_user",
		RawDate:         rawDate,
		OccurredAt:      occurredAt,
	}
}

// ── RecordEvent ──────────────────────────────────────────────────────────────

func TestAccessEventStore_RecordEvent_InsertsRow(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedLock(t, conn, 101)
	es := sqlitestore.NewAccessEventStore(conn, w)

	occurred := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	err := es.RecordEvent(context.Background(), keypadEvent(101, "Alice", occurred, "2026-02-15T12:00:00Z"))
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	var count int
	err = conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM access_events WHERE lock_id = ?`, 101,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 access_event row, got %d", count)
	}
}

func TestAccessEventStore_RecordEvent_UnknownLockGetsRow(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewAccessEventStore(conn, w)

	// No seedLock: the store must create the locks row itself so the
	// foreign key holds.
	occurred := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	err := es.RecordEvent(context.Background(), keypadEvent(999, "Bob", occurred, "2026-02-15T12:00:00Z"))
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	var count int
	if err := conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM locks WHERE lock_id = ?`, 999,
	).Scan(&count); err != nil {
		t.Fatalf("count locks: %v", err)
	}
	if count != 1 {
		t.Errorf("expected lock row to be auto-created, got %d rows", count)
	}
}

// ── LastEvent ────────────────────────────────────────────────────────────────

func TestAccessEventStore_LastEvent_ReturnsNewest(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedLock(t, conn, 101)
	es := sqlitestore.NewAccessEventStore(conn, w)

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	for i, user := range []string{"Alice", "Bob", "Carol"} {
		ev := keypadEvent(101, user, base.Add(time.Duration(i)*time.Minute), base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339))
		if err := es.RecordEvent(context.Background(), ev); err != nil {
			t.Fatalf("RecordEvent %s: %v", user, err)
		}
	}

	last, err := es.LastEvent(context.Background(), 101, bus.ChannelKeypadAction)
	if err != nil {
		t.Fatalf("LastEvent: %v", err)
	}
	if last == nil {
		t.Fatal("expected a last event")
	}
	if last.User != "Carol" {
		t.Errorf("expected newest event user Carol, got %q", last.User)
	}
}

func TestAccessEventStore_LastEvent_FiltersChannel(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedLock(t, conn, 101)
	es := sqlitestore.NewAccessEventStore(conn, w)

	occurred := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	manual := keypadEvent(101, "", occurred.Add(time.Hour), "2026-02-15T13:00:00Z")
	manual.Channel = bus.ChannelManualAction
	manual.User = "Unknown User"

	if err := es.RecordEvent(context.Background(), keypadEvent(101, "Alice", occurred, "2026-02-15T12:00:00Z")); err != nil {
		t.Fatalf("RecordEvent keypad: %v", err)
	}
	if err := es.RecordEvent(context.Background(), manual); err != nil {
		t.Fatalf("RecordEvent manual: %v", err)
	}

	last, err := es.LastEvent(context.Background(), 101, bus.ChannelKeypadAction)
	if err != nil {
		t.Fatalf("LastEvent: %v", err)
	}
	if last == nil || last.User != "Alice" {
		t.Errorf("expected keypad channel to return Alice, got %+v", last)
	}
}

func TestAccessEventStore_LastEvent_NoneRecorded(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewAccessEventStore(conn, w)

	last, err := es.LastEvent(context.Background(), 5, bus.ChannelKeypadAction)
	if err != nil {
		t.Fatalf("LastEvent: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil for lock with no events, got %+v", last)
	}
}

// ── PruneOlderThan ───────────────────────────────────────────────────────────

func TestAccessEventStore_PruneOlderThan(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedLock(t, conn, 101)
	es := sqlitestore.NewAccessEventStore(conn, w)

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ev := keypadEvent(101, "Alice", base.Add(time.Duration(i)*time.Hour), base.Add(time.Duration(i)*time.Hour).Format(time.RFC3339))
		if err := es.RecordEvent(context.Background(), ev); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	deleted, err := es.PruneOlderThan(context.Background(), base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 rows pruned, got %d", deleted)
	}

	var count int
	if err := conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM access_events`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row remaining, got %d", count)
	}
}
