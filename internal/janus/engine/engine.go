// Package engine derives discrete, de-duplicated, attributed access events
// from a smartlock's raw activity log feed. It is purely computational: no
// I/O, no clock reads, no shared state. A caller owns one State per lock
// and threads it through successive poll cycles.
package engine

import (
	"io"
	"log"
	"sort"
	"time"

	"github.com/BrandonDHaskell/Janus/internal/nuki"
)

const DefaultDetectionWindow = 120 * time.Second

// State carries the per-lock high-water marks between poll cycles. The
// watermarks hold raw date strings from the feed and are monotonically
// non-decreasing. Keypad and manual detection advance independently.
type State struct {
	LastKeypadDate string
	LastKeypadUser string
	LastManualDate string
}

type Config struct {
	// DetectionWindow bounds how old a record may be, relative to the
	// poll time, and still produce an event.
	DetectionWindow time.Duration

	// FingerprintUsers is the operator-configured identity table.
	FingerprintUsers Mapping

	// EnhancedLogging turns on per-record trace lines. No behavioral
	// effect.
	EnhancedLogging bool
}

type Engine struct {
	cfg    Config
	logger *log.Logger
}

func New(cfg Config, logger *log.Logger) *Engine {
	if cfg.DetectionWindow <= 0 {
		cfg.DetectionWindow = DefaultDetectionWindow
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Event is one attributed access event derived from a log record.
type Event struct {
	Record       nuki.LogRecord
	OccurredAt   time.Time
	Age          time.Duration
	Method       AccessMethod
	User         string // never empty
	OriginalName string // name as the device reported it
	Reason       DetectionReason

	// Sequence is the 1-based position within the batch after sorting
	// newest first, so sequence 1 is the most recent qualifying event.
	Sequence int
	Total    int
}

// ProcessBatch classifies, attributes and filters one poll cycle's worth
// of log records (newest first, as the feed returns them) and returns the
// qualifying events ordered most-recent-first, plus the advanced state.
// The watermark moves once, at the end of the batch, to the single most
// recent admitted record; an empty working set leaves state untouched.
// A record that fails to parse is logged and skipped — it never affects
// the rest of the batch.
func (e *Engine) ProcessBatch(records []nuki.LogRecord, now time.Time, st State) ([]Event, State) {
	var admitted []Event

	for i, rec := range records {
		c := Classify(rec)
		if !c.Keypad {
			continue
		}

		occurredAt, err := NormalizeTimestamp(rec.Date)
		if err != nil {
			e.logger.Printf("skip keypad log entry %d: %v", i, err)
			continue
		}

		if !admit(rec.Date, occurredAt, now, st.LastKeypadDate, e.cfg.DetectionWindow) {
			continue
		}

		method, user := Resolve(rec, records, i, e.cfg.FingerprintUsers)
		if e.cfg.EnhancedLogging {
			e.logger.Printf("keypad entry %d admitted: method=%s user=%q reason=%s age=%s",
				i, method, user, c.Reason, now.Sub(occurredAt))
		}

		admitted = append(admitted, Event{
			Record:       rec,
			OccurredAt:   occurredAt,
			Age:          now.Sub(occurredAt),
			Method:       method,
			User:         user,
			OriginalName: rec.Name,
			Reason:       c.Reason,
		})
	}

	if len(admitted) == 0 {
		return nil, st
	}

	sort.SliceStable(admitted, func(i, j int) bool {
		return admitted[i].OccurredAt.After(admitted[j].OccurredAt)
	})
	for i := range admitted {
		admitted[i].Sequence = i + 1
		admitted[i].Total = len(admitted)
	}

	newest := admitted[0]
	st.LastKeypadDate = newest.Record.Date
	st.LastKeypadUser = newest.User
	return admitted, st
}

// DetectManual scans for manual (handle/external key) operations and
// returns at most one event per cycle: the first qualifying record in the
// feed's natural newest-first order. Manual detection fires once per
// distinct physical action rather than replaying history, so it
// deliberately does not emit every qualifying record the way the keypad
// path does. It advances its own watermark, independent of the keypad one.
func (e *Engine) DetectManual(records []nuki.LogRecord, now time.Time, st State) (*Event, State) {
	for i, rec := range records {
		c := Classify(rec)
		if !c.Manual {
			continue
		}

		occurredAt, err := NormalizeTimestamp(rec.Date)
		if err != nil {
			e.logger.Printf("skip manual log entry %d: %v", i, err)
			continue
		}

		if !admit(rec.Date, occurredAt, now, st.LastManualDate, e.cfg.DetectionWindow) {
			continue
		}

		user := rec.Name
		if user == "" {
			user = "Unknown User"
		}

		ev := Event{
			Record:       rec,
			OccurredAt:   occurredAt,
			Age:          now.Sub(occurredAt),
			Method:       ManualMethod(rec),
			User:         user,
			OriginalName: rec.Name,
			Reason:       c.Reason,
			Sequence:     1,
			Total:        1,
		}

		st.LastManualDate = rec.Date
		return &ev, st
	}

	return nil, st
}
