package engine

import (
	"fmt"

	"github.com/BrandonDHaskell/Janus/internal/nuki"
)

// Mapping is the operator-configured identity table, keyed by source slot
// ("source_1", "source_2", ...).
type Mapping map[string]string

// Scan bounds for the fallback chain. The auth-id correlation looks at a
// symmetric window around the current record; frequency analysis and the
// neighbor lookup are bounded to the most recent entries.
const (
	authIDScanBack   = 50
	authIDScanAhead  = 10
	frequencyWindow  = 30
	neighborScanSpan = 20
)

// Resolve determines the access method and user identity for a
// keypad-classified record. Pure: its only inputs are the record, the
// batch it arrived in, and the configured mapping. Resolution never
// fails — ambiguity degrades to a descriptive placeholder.
func Resolve(rec nuki.LogRecord, batch []nuki.LogRecord, index int, mapping Mapping) (AccessMethod, string) {
	switch rec.Source {
	case nuki.SourceFingerprint:
		switch {
		case rec.State == nuki.StateWrongFingerprint:
			return MethodFingerprint, "Unknown Fingerprint (Failed)"
		case usableName(rec.Name):
			return MethodFingerprint, rec.Name
		default:
			return MethodFingerprint, resolveFingerprintUser(rec, batch, index, mapping)
		}
	case nuki.SourcePIN:
		switch {
		case rec.State == nuki.StateWrongPIN:
			return MethodPINCode, "Unknown PIN (Failed)"
		case usableName(rec.Name):
			return MethodPINCode, rec.Name
		default:
			return MethodPINCode, "PIN User"
		}
	default:
		if rec.Name != "" {
			return MethodUnknown, rec.Name
		}
		return MethodUnknown, "Unknown User"
	}
}

// fallbackStrategy is one step of the fingerprint identity chain. Steps
// run in declaration order; the first non-empty result wins.
type fallbackStrategy struct {
	name    string
	resolve func(rec nuki.LogRecord, batch []nuki.LogRecord, index int, mapping Mapping) string
}

var fingerprintFallbacks = []fallbackStrategy{
	{"auth_id_fingerprint", matchAuthIDFingerprint},
	{"auth_id_pin", matchAuthIDPIN},
	{"configured_mapping", configuredMapping},
	{"frequent_fingerprint_user", frequentFingerprintUser},
	{"recent_fingerprint_user", recentFingerprintUser},
}

func resolveFingerprintUser(rec nuki.LogRecord, batch []nuki.LogRecord, index int, mapping Mapping) string {
	for _, s := range fingerprintFallbacks {
		if name := s.resolve(rec, batch, index, mapping); name != "" {
			return name
		}
	}
	return terminalFallback(rec)
}

// matchAuthIDFingerprint scans nearby records for a successful fingerprint
// entry sharing the record's auth id and carrying a real name. The same
// enrolled credential sometimes reports a name on one occurrence and the
// keypad placeholder on another.
func matchAuthIDFingerprint(rec nuki.LogRecord, batch []nuki.LogRecord, index int, _ Mapping) string {
	return matchAuthID(rec, batch, index, nuki.SourceFingerprint)
}

// matchAuthIDPIN accepts a PIN entry with the same auth id: a user who
// sometimes authenticates by PIN corroborates fingerprint identity.
func matchAuthIDPIN(rec nuki.LogRecord, batch []nuki.LogRecord, index int, _ Mapping) string {
	return matchAuthID(rec, batch, index, nuki.SourcePIN)
}

func matchAuthID(rec nuki.LogRecord, batch []nuki.LogRecord, index int, wantSource int) string {
	if rec.AuthID == "" {
		return ""
	}

	back := authIDScanBack
	if len(batch) < back {
		back = len(batch)
	}
	lo := index - back
	if lo < 0 {
		lo = 0
	}
	hi := index + authIDScanAhead
	if hi > len(batch) {
		hi = len(batch)
	}

	for i := lo; i < hi; i++ {
		if i == index {
			continue
		}
		e := batch[i]
		if e.AuthID == rec.AuthID &&
			e.Source == wantSource &&
			e.Trigger == nuki.TriggerKeypadUser &&
			e.State == nuki.StateSuccess &&
			usableName(e.Name) {
			return e.Name
		}
	}
	return ""
}

func configuredMapping(rec nuki.LogRecord, _ []nuki.LogRecord, _ int, mapping Mapping) string {
	return mapping[fmt.Sprintf("source_%d", rec.Source)]
}

// frequentFingerprintUser returns the most frequent usable name among
// recent successful fingerprint entries. Ties break toward the name seen
// first in the batch.
func frequentFingerprintUser(_ nuki.LogRecord, batch []nuki.LogRecord, _ int, _ Mapping) string {
	window := batch
	if len(window) > frequencyWindow {
		window = window[:frequencyWindow]
	}

	counts := make(map[string]int)
	var order []string
	for _, e := range window {
		if e.Trigger == nuki.TriggerKeypadUser &&
			e.Source == nuki.SourceFingerprint &&
			e.State == nuki.StateSuccess &&
			usableName(e.Name) {
			if counts[e.Name] == 0 {
				order = append(order, e.Name)
			}
			counts[e.Name]++
		}
	}

	best := ""
	for _, name := range order {
		if best == "" || counts[name] > counts[best] {
			best = name
		}
	}
	return best
}

// recentFingerprintUser scans forward from the current record (records are
// newest first, so forward means older) for the next successful
// fingerprint entry with a usable name.
func recentFingerprintUser(_ nuki.LogRecord, batch []nuki.LogRecord, index int, _ Mapping) string {
	hi := index + neighborScanSpan
	if hi > len(batch) {
		hi = len(batch)
	}
	for i := index + 1; i < hi; i++ {
		e := batch[i]
		if e.Trigger == nuki.TriggerKeypadUser &&
			e.Source == nuki.SourceFingerprint &&
			e.State == nuki.StateSuccess &&
			usableName(e.Name) {
			return e.Name
		}
	}
	return ""
}

// terminalFallback synthesizes a descriptive placeholder from the source
// slot and the tail of the auth id. Always succeeds.
func terminalFallback(rec nuki.LogRecord) string {
	name := fmt.Sprintf("Fingerprint User (Source %d)", rec.Source)
	if len(rec.AuthID) > 8 {
		name += fmt.Sprintf(" [%s]", rec.AuthID[len(rec.AuthID)-8:])
	}
	return name
}
