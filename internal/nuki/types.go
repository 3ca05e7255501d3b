package nuki

import "fmt"

// Trigger codes reported on activity log records.
const (
	TriggerWeb        = 0
	TriggerManual     = 1
	TriggerButton     = 2
	TriggerAutomatic  = 3
	TriggerKeypad     = 4
	TriggerKeypadUser = 255 // keypad with an authenticated user
)

// Source codes for keypad-originated records. Meaningless for other triggers.
const (
	SourcePIN         = 1
	SourceFingerprint = 2
)

// Lock actions accepted by the action endpoint and reported in logs.
const (
	ActionUnlock             = 1
	ActionLock               = 2
	ActionUnlatch            = 3
	ActionLockNGo            = 4
	ActionLockNGoWithUnlatch = 5
)

// Completion codes on a log record's state field. Values below 224 are
// lock-motion states; 224/225 are keypad authentication failures.
const (
	StateSuccess          = 0
	StateWrongPIN         = 224
	StateWrongFingerprint = 225
)

// LogRecord is one activity log entry as returned by the Web API.
// Fields the API omits decode to their zero values, so consumers see a
// closed schema: empty Name, empty AuthID, zero Source and so on.
type LogRecord struct {
	SmartlockID int64  `json:"smartlockId"`
	Trigger     int    `json:"trigger"`
	Source      int    `json:"source"`
	Action      int    `json:"action"`
	State       int    `json:"state"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	AuthID      string `json:"authId"`
}

// Smartlock is a lock as returned by /smartlock and /smartlock/{id}.
type Smartlock struct {
	SmartlockID int64            `json:"smartlockId"`
	Name        string           `json:"name"`
	State       *SmartlockState  `json:"state,omitempty"`
	Config      *SmartlockConfig `json:"config,omitempty"`
}

type SmartlockState struct {
	State           int  `json:"state"`
	BatteryCritical bool `json:"batteryCritical"`
}

type SmartlockConfig struct {
	BatteryLevel *int `json:"batteryLevel,omitempty"`
}

var lockStateNames = map[int]string{
	0:   "uncalibrated",
	1:   "locked",
	2:   "unlocking",
	3:   "unlocked",
	4:   "locking",
	5:   "unlatched",
	6:   "unlocked (lock 'n' go)",
	7:   "unlatching",
	254: "motor blocked",
	255: "undefined",
}

// LockStateName maps a numeric lock state to its display name.
func LockStateName(code int) string {
	if name, ok := lockStateNames[code]; ok {
		return name
	}
	return "unknown"
}

var actionCodes = map[string]int{
	"unlock":                   ActionUnlock,
	"lock":                     ActionLock,
	"unlatch":                  ActionUnlatch,
	"lock_n_go":                ActionLockNGo,
	"lock_n_go_with_unlatch":   ActionLockNGoWithUnlatch,
}

// ActionByName resolves an action's wire code from its name.
func ActionByName(name string) (int, bool) {
	code, ok := actionCodes[name]
	return code, ok
}

// ActionName maps an action code back to its name for event payloads.
func ActionName(code int) string {
	for name, c := range actionCodes {
		if c == code {
			return name
		}
	}
	return fmt.Sprintf("action_%d", code)
}

var stateDescriptions = map[int]string{
	0:   "Success",
	1:   "Locked",
	2:   "Unlocking",
	3:   "Unlocked",
	4:   "Locking",
	5:   "Unlatched",
	6:   "Unlocked (Lock 'n' Go)",
	7:   "Unlatching",
	224: "Error: Wrong PIN Code",
	225: "Error: Wrong Fingerprint",
	254: "Motor Blocked",
	255: "Undefined",
}

// StateDescription returns a human-readable description of a log record's
// completion state.
func StateDescription(state int) string {
	if d, ok := stateDescriptions[state]; ok {
		return d
	}
	return fmt.Sprintf("Unknown State (%d)", state)
}
