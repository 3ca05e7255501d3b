package engine

import (
	"fmt"
	"strings"

	"github.com/BrandonDHaskell/Janus/internal/nuki"
)

// AccessMethod describes how the lock was operated.
type AccessMethod string

const (
	MethodPINCode            AccessMethod = "pin_code"
	MethodFingerprint        AccessMethod = "fingerprint"
	MethodManualInsideHandle AccessMethod = "manual_inside_handle"
	MethodManualExternalKey  AccessMethod = "manual_external_key"
	MethodUnknown            AccessMethod = "unknown"
)

// DetectionReason tags why a record was classified as it was. Reasons are
// informational; they never gate classification.
type DetectionReason string

const (
	ReasonTrigger255WithUser DetectionReason = "trigger_255_with_user"
	ReasonAuthUserUnlatch255 DetectionReason = "auth_user_unlatch_255"
	ReasonUnknown            DetectionReason = "unknown"
)

// Device labels that stand in for a real user name. The keypad placeholder
// is what certain fingerprint firmware reports instead of the enrolled
// user; the web label marks administrative web-console operations.
const (
	placeholderKeypadName = "Nuki Keypad"
	placeholderUnknown    = "Unknown"
	adminWebLabel         = "Nuki Web"
)

// usableName reports whether a device-reported name identifies a real
// user, as opposed to being empty or one of the placeholder labels.
func usableName(name string) bool {
	return name != "" &&
		name != placeholderUnknown &&
		name != placeholderKeypadName &&
		!strings.Contains(name, adminWebLabel)
}

// Classification is the result of classifying one raw log record.
type Classification struct {
	Keypad bool
	Manual bool
	Reason DetectionReason
}

// Classify decides whether a record represents a keypad-originated access,
// a manual operation, or neither. The keypad predicate — trigger 255 with
// source PIN or fingerprint — is the single authoritative rule; name-based
// heuristics only refine the reason tag.
func Classify(rec nuki.LogRecord) Classification {
	return Classification{
		Keypad: rec.Trigger == nuki.TriggerKeypadUser &&
			(rec.Source == nuki.SourcePIN || rec.Source == nuki.SourceFingerprint),
		Manual: rec.Trigger == nuki.TriggerManual,
		Reason: detectionReason(rec),
	}
}

func detectionReason(rec nuki.LogRecord) DetectionReason {
	switch {
	case rec.Trigger == nuki.TriggerKeypadUser && rec.Name != "" &&
		rec.Name != placeholderUnknown && !strings.Contains(rec.Name, adminWebLabel):
		return ReasonTrigger255WithUser
	case (rec.Source == nuki.SourcePIN || rec.Source == nuki.SourceFingerprint) &&
		rec.Name != "" && rec.Name != placeholderUnknown:
		return DetectionReason(fmt.Sprintf("source_%d_with_user", rec.Source))
	case rec.AuthID != "" && rec.Name != "" &&
		rec.Action == nuki.ActionUnlatch && rec.Trigger == nuki.TriggerKeypadUser:
		return ReasonAuthUserUnlatch255
	default:
		return ReasonUnknown
	}
}

// ManualMethod sub-classifies a manual-trigger record as inside handle or
// external key. Best effort only: it keys on the action and whether the
// device reported a user name, and lock models are known to differ.
func ManualMethod(rec nuki.LogRecord) AccessMethod {
	switch rec.Action {
	case nuki.ActionUnlock:
		if rec.Name == "" {
			return MethodManualExternalKey
		}
		return MethodManualInsideHandle
	case nuki.ActionLock, nuki.ActionUnlatch:
		return MethodManualInsideHandle
	default:
		return MethodUnknown
	}
}
