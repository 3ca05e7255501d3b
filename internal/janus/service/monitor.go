package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Janus/internal/janus/bus"
	"github.com/BrandonDHaskell/Janus/internal/janus/engine"
	"github.com/BrandonDHaskell/Janus/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/internal/nuki"
)

var (
	ErrUnknownAction = errors.New("unknown lock action")
	ErrPollInFlight  = errors.New("poll already in progress")
)

// publishSpacing is a small pause between consecutive event publishes so
// downstream consumers see distinct arrival times for same-batch events.
const publishSpacing = 100 * time.Millisecond

// LockAPI is the subset of the Nuki client a monitor needs.
type LockAPI interface {
	SmartlockState(ctx context.Context, smartlockID int64) (nuki.Smartlock, error)
	Logs(ctx context.Context, smartlockID int64, limit int) ([]nuki.LogRecord, error)
	SendAction(ctx context.Context, smartlockID int64, action int) error
}

// MonitorConfig holds the per-lock monitor parameters.
type MonitorConfig struct {
	LockID        int64
	LockName      string
	LogFetchLimit int
}

// LockMonitor polls one smartlock: it tracks lock state, runs the log
// feed through the attribution engine, publishes the resulting events and
// records them in the audit store.
type LockMonitor struct {
	cfg       MonitorConfig
	api       LockAPI
	engine    *engine.Engine
	events    store.AccessEventStore
	locks     store.LockStore
	publisher bus.Publisher
	logger    *log.Logger

	// pollMu serializes poll cycles; an overlapping tick is skipped
	// rather than queued.
	pollMu sync.Mutex

	// mu guards the snapshot below.
	mu        sync.Mutex
	state     engine.State
	lockState string
	battCrit  bool
	battLevel *int
	available bool
}

func NewLockMonitor(
	cfg MonitorConfig,
	api LockAPI,
	eng *engine.Engine,
	events store.AccessEventStore,
	locks store.LockStore,
	publisher bus.Publisher,
	logger *log.Logger,
) *LockMonitor {
	if cfg.LogFetchLimit <= 0 {
		cfg.LogFetchLimit = 20
	}
	return &LockMonitor{
		cfg:       cfg,
		api:       api,
		engine:    eng,
		events:    events,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
		lockState: "undefined",
	}
}

// LockStatus is a point-in-time view of a monitored lock.
type LockStatus struct {
	LockID          int64
	Name            string
	State           string
	BatteryCritical bool
	BatteryLevel    *int
	Available       bool
	LastKeypadUser  string
	LastKeypadDate  string
	LastManualDate  string
}

func (m *LockMonitor) Status() LockStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LockStatus{
		LockID:          m.cfg.LockID,
		Name:            m.cfg.LockName,
		State:           m.lockState,
		BatteryCritical: m.battCrit,
		BatteryLevel:    m.battLevel,
		Available:       m.available,
		LastKeypadUser:  m.state.LastKeypadUser,
		LastKeypadDate:  m.state.LastKeypadDate,
		LastManualDate:  m.state.LastManualDate,
	}
}

// Action sends a named lock action (unlock, lock, unlatch, ...) to the
// device.
func (m *LockMonitor) Action(ctx context.Context, name string) error {
	code, ok := nuki.ActionByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	if err := m.api.SendAction(ctx, m.cfg.LockID, code); err != nil {
		return fmt.Errorf("smartlock %d action %s: %w", m.cfg.LockID, name, err)
	}
	m.logger.Printf("smartlock %d: sent action %s", m.cfg.LockID, name)
	return nil
}

// Poll runs one monitoring cycle. If a previous cycle is still running
// the call returns ErrPollInFlight immediately.
//
// A failed state fetch marks the lock unavailable but does not abort the
// cycle; a failed log fetch degrades to an empty feed. Publish and audit
// errors are logged per event and never stop the batch.
func (m *LockMonitor) Poll(ctx context.Context, now time.Time) error {
	if !m.pollMu.TryLock() {
		return ErrPollInFlight
	}
	defer m.pollMu.Unlock()

	m.refreshState(ctx, now)

	records, err := m.api.Logs(ctx, m.cfg.LockID, m.cfg.LogFetchLimit)
	if err != nil {
		m.logger.Printf("smartlock %d: log fetch failed: %v", m.cfg.LockID, err)
		records = nil
	}

	m.mu.Lock()
	st := m.state
	m.mu.Unlock()

	events, st := m.engine.ProcessBatch(records, now, st)
	for i, ev := range events {
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(publishSpacing):
			}
		}
		m.emit(ctx, ev, bus.ChannelKeypadAction, now)
	}

	manual, st := m.engine.DetectManual(records, now, st)
	if manual != nil {
		m.emit(ctx, *manual, bus.ChannelManualAction, now)
	}

	m.mu.Lock()
	m.state = st
	m.mu.Unlock()

	return nil
}

// refreshState fetches the lock's current state and records it in the
// lock store.
func (m *LockMonitor) refreshState(ctx context.Context, now time.Time) {
	lock, err := m.api.SmartlockState(ctx, m.cfg.LockID)
	if err != nil {
		m.logger.Printf("smartlock %d: state fetch failed: %v", m.cfg.LockID, err)
		m.mu.Lock()
		m.available = false
		m.mu.Unlock()
		return
	}

	stateName := "undefined"
	battCrit := false
	if lock.State != nil {
		stateName = nuki.LockStateName(lock.State.State)
		battCrit = lock.State.BatteryCritical
	}
	var battLevel *int
	if lock.Config != nil {
		battLevel = lock.Config.BatteryLevel
	}

	m.mu.Lock()
	if lock.Name != "" {
		m.cfg.LockName = lock.Name
	}
	m.lockState = stateName
	m.battCrit = battCrit
	m.battLevel = battLevel
	m.available = true
	name := m.cfg.LockName
	m.mu.Unlock()

	rec := store.LockRecord{
		LockID:          m.cfg.LockID,
		Name:            name,
		State:           stateName,
		BatteryCritical: battCrit,
		BatteryLevel:    battLevel,
		Available:       true,
		LastSeen:        now,
	}
	if err := m.locks.UpsertLock(ctx, rec); err != nil {
		m.logger.Printf("smartlock %d: upsert failed: %v", m.cfg.LockID, err)
	}
}

// emit publishes one event and appends it to the audit log. Neither
// failure is returned to the caller; an access event that reached the
// engine should never be lost to a transient sink error silently, so
// both paths log loudly instead.
func (m *LockMonitor) emit(ctx context.Context, ev engine.Event, channel string, now time.Time) {
	msg := bus.Message{
		EventID:          uuid.NewString(),
		LockID:           m.cfg.LockID,
		LockName:         m.cfg.LockName,
		Action:           ev.Record.Action,
		ActionName:       nuki.ActionName(ev.Record.Action),
		User:             ev.User,
		OriginalName:     ev.OriginalName,
		AccessMethod:     string(ev.Method),
		Timestamp:        ev.Record.Date,
		AgeSeconds:       ev.Age.Seconds(),
		Trigger:          ev.Record.Trigger,
		Source:           ev.Record.Source,
		AuthID:           ev.Record.AuthID,
		State:            ev.Record.State,
		StateDescription: nuki.StateDescription(ev.Record.State),
		DetectionReason:  string(ev.Reason),
		Sequence:         ev.Sequence,
		Total:            ev.Total,
	}

	if err := m.publisher.Publish(ctx, channel, msg); err != nil {
		m.logger.Printf("smartlock %d: publish %s failed: %v", m.cfg.LockID, channel, err)
	}

	rec := store.AccessEventRecord{
		LockID:          m.cfg.LockID,
		Channel:         channel,
		User:            ev.User,
		OriginalName:    ev.OriginalName,
		AccessMethod:    string(ev.Method),
		Action:          ev.Record.Action,
		Trigger:         ev.Record.Trigger,
		Source:          ev.Record.Source,
		AuthID:          ev.Record.AuthID,
		State:           ev.Record.State,
		DetectionReason: string(ev.Reason),
		RawDate:         ev.Record.Date,
		OccurredAt:      ev.OccurredAt,
		RecordedAt:      now,
	}
	if err := m.events.RecordEvent(ctx, rec); err != nil {
		m.logger.Printf("smartlock %d: audit write failed: %v", m.cfg.LockID, err)
	}
}
