package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Janus/internal/janus/bus"
	"github.com/BrandonDHaskell/Janus/internal/janus/engine"
	"github.com/BrandonDHaskell/Janus/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/internal/nuki"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fakeLockAPI serves canned state and log responses.
type fakeLockAPI struct {
	mu      sync.Mutex
	lock    nuki.Smartlock
	records []nuki.LogRecord

	stateErr error
	logsErr  error

	actions []int

	// When set, the first Logs call closes entered and then blocks until
	// gate closes.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeLockAPI) SmartlockState(_ context.Context, _ int64) (nuki.Smartlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return nuki.Smartlock{}, f.stateErr
	}
	return f.lock, nil
}

func (f *fakeLockAPI) Logs(_ context.Context, _ int64, _ int) ([]nuki.LogRecord, error) {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()
	if gate != nil {
		close(f.entered)
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.records, nil
}

func (f *fakeLockAPI) SendAction(_ context.Context, _ int64, action int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func rawDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func newTestMonitor(api *fakeLockAPI) (*service.LockMonitor, *memory.AccessEventStore, *memory.LockStore, *bus.MemoryPublisher) {
	events := memory.NewAccessEventStore()
	locks := memory.NewLockStore()
	pub := bus.NewMemoryPublisher()
	eng := engine.New(engine.Config{DetectionWindow: 120 * time.Second}, silentLogger())

	m := service.NewLockMonitor(service.MonitorConfig{
		LockID:        18,
		LockName:      "Front Door",
		LogFetchLimit: 20,
	}, api, eng, events, locks, pub, silentLogger())

	return m, events, locks, pub
}

func TestPollPublishesKeypadEvent(t *testing.T) {
	now := time.Now().UTC()
	api := &fakeLockAPI{
		lock: nuki.Smartlock{
			SmartlockID: 18,
			Name:        "Front Door",
			State:       &nuki.SmartlockState{State: 3}, // unlocked
		},
		records: []nuki.LogRecord{
			{
				SmartlockID: 18,
				Trigger:     nuki.TriggerKeypadUser,
				Source:      nuki.SourcePIN,
				Action:      nuki.ActionUnlock,
				State:       nuki.StateSuccess,
				Date:        rawDate(now.Add(-10 * time.Second)),
				Name:        "Alice",
			},
		},
	}
	m, events, locks, pub := newTestMonitor(api)

	if err := m.Poll(context.Background(), now); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	msgs := pub.Messages(bus.ChannelKeypadAction)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 keypad message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.User != "Alice" || msg.AccessMethod != "pin_code" {
		t.Errorf("unexpected message: user=%q method=%q", msg.User, msg.AccessMethod)
	}
	if msg.EventID == "" {
		t.Error("message missing event id")
	}
	if msg.Sequence != 1 || msg.Total != 1 {
		t.Errorf("sequence=%d total=%d, want 1/1", msg.Sequence, msg.Total)
	}
	if msg.ActionName != "unlock" {
		t.Errorf("ActionName = %q, want unlock", msg.ActionName)
	}

	// Audit log got the same event.
	last, err := events.LastEvent(context.Background(), 18, bus.ChannelKeypadAction)
	if err != nil {
		t.Fatalf("LastEvent: %v", err)
	}
	if last == nil || last.User != "Alice" {
		t.Fatalf("audit record missing or wrong: %+v", last)
	}

	// Lock store was refreshed.
	lock, err := locks.Lock(context.Background(), 18)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if lock == nil || lock.State != "unlocked" || !lock.Available {
		t.Fatalf("lock record missing or wrong: %+v", lock)
	}

	st := m.Status()
	if st.LastKeypadUser != "Alice" {
		t.Errorf("Status().LastKeypadUser = %q, want Alice", st.LastKeypadUser)
	}
}

func TestPollIsIdempotentAcrossCycles(t *testing.T) {
	now := time.Now().UTC()
	api := &fakeLockAPI{
		lock: nuki.Smartlock{SmartlockID: 18, Name: "Front Door"},
		records: []nuki.LogRecord{
			{
				SmartlockID: 18,
				Trigger:     nuki.TriggerKeypadUser,
				Source:      nuki.SourceFingerprint,
				Action:      nuki.ActionUnlock,
				State:       nuki.StateSuccess,
				Date:        rawDate(now.Add(-5 * time.Second)),
				Name:        "Bob",
			},
		},
	}
	m, _, _, pub := newTestMonitor(api)

	if err := m.Poll(context.Background(), now); err != nil {
		t.Fatalf("first Poll: %v", err)
	}
	if err := m.Poll(context.Background(), now.Add(30*time.Second)); err != nil {
		t.Fatalf("second Poll: %v", err)
	}

	msgs := pub.Messages(bus.ChannelKeypadAction)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message after two polls of same feed, got %d", len(msgs))
	}
}

func TestPollSurvivesLogFetchError(t *testing.T) {
	now := time.Now().UTC()
	api := &fakeLockAPI{
		lock:    nuki.Smartlock{SmartlockID: 18, Name: "Front Door", State: &nuki.SmartlockState{State: 1}},
		logsErr: errors.New("boom"),
	}
	m, _, locks, pub := newTestMonitor(api)

	if err := m.Poll(context.Background(), now); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if n := len(pub.Messages(bus.ChannelKeypadAction)); n != 0 {
		t.Errorf("expected no messages, got %d", n)
	}
	// State refresh still happened.
	lock, err := locks.Lock(context.Background(), 18)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if lock == nil || lock.State != "locked" {
		t.Fatalf("lock record missing or wrong: %+v", lock)
	}
}

func TestPollMarksUnavailableOnStateError(t *testing.T) {
	api := &fakeLockAPI{stateErr: errors.New("timeout")}
	m, _, _, _ := newTestMonitor(api)

	if err := m.Poll(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if st := m.Status(); st.Available {
		t.Error("expected lock to be marked unavailable")
	}
}

func TestPollDetectsManualAction(t *testing.T) {
	now := time.Now().UTC()
	api := &fakeLockAPI{
		lock: nuki.Smartlock{SmartlockID: 18},
		records: []nuki.LogRecord{
			{
				SmartlockID: 18,
				Trigger:     nuki.TriggerManual,
				Action:      nuki.ActionUnlock,
				State:       nuki.StateSuccess,
				Date:        rawDate(now.Add(-3 * time.Second)),
			},
		},
	}
	m, _, _, pub := newTestMonitor(api)

	if err := m.Poll(context.Background(), now); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	msgs := pub.Messages(bus.ChannelManualAction)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 manual message, got %d", len(msgs))
	}
	if msgs[0].AccessMethod != "manual_external_key" {
		t.Errorf("AccessMethod = %q, want manual_external_key", msgs[0].AccessMethod)
	}
	if msgs[0].User != "Unknown User" {
		t.Errorf("User = %q, want Unknown User", msgs[0].User)
	}
	if n := len(pub.Messages(bus.ChannelKeypadAction)); n != 0 {
		t.Errorf("manual record leaked onto keypad channel (%d messages)", n)
	}
}

func TestOverlappingPollSkipped(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeLockAPI{
		lock:    nuki.Smartlock{SmartlockID: 18},
		gate:    gate,
		entered: entered,
	}
	m, _, _, _ := newTestMonitor(api)

	done := make(chan error, 1)
	go func() { done <- m.Poll(context.Background(), time.Now().UTC()) }()

	// Wait for the first poll to be blocked inside Logs, then try again.
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first poll never reached the log fetch")
	}

	if err := m.Poll(context.Background(), time.Now().UTC()); !errors.Is(err, service.ErrPollInFlight) {
		t.Fatalf("second poll: got %v, want ErrPollInFlight", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Poll: %v", err)
	}
}

func TestActionByName(t *testing.T) {
	api := &fakeLockAPI{lock: nuki.Smartlock{SmartlockID: 18}}
	m, _, _, _ := newTestMonitor(api)
	ctx := context.Background()

	if err := m.Action(ctx, "teleport"); !errors.Is(err, service.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if err := m.Action(ctx, "unlatch"); err != nil {
		t.Fatalf("Action(unlatch): %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.actions) != 1 || api.actions[0] != nuki.ActionUnlatch {
		t.Fatalf("unexpected actions sent: %v", api.actions)
	}
}

func TestRegistryOrderAndLookup(t *testing.T) {
	reg := service.NewLockRegistry()
	a, _, _, _ := newTestMonitor(&fakeLockAPI{})
	reg.Add(a)

	if reg.Monitor(18) != a {
		t.Fatal("Monitor(18) did not return registered monitor")
	}
	if reg.Monitor(99) != nil {
		t.Fatal("Monitor(99) should be nil")
	}
	if got := len(reg.Monitors()); got != 1 {
		t.Fatalf("Monitors() len = %d, want 1", got)
	}
}
