// Package bus publishes attributed access events to downstream consumers.
package bus

import "context"

// Channel names. Keypad and manual events land on separate streams so
// automations can subscribe to the one they care about.
const (
	ChannelKeypadAction = "janus:keypad_action"
	ChannelManualAction = "janus:manual_action"
)

// Message is one published access event.
type Message struct {
	EventID          string  `json:"event_id"`
	LockID           int64   `json:"lock_id"`
	LockName         string  `json:"lock_name,omitempty"`
	Action           int     `json:"action"`
	ActionName       string  `json:"action_name"`
	User             string  `json:"user"`
	OriginalName     string  `json:"original_user_name"`
	AccessMethod     string  `json:"access_method"`
	Timestamp        string  `json:"timestamp"` // raw log date
	AgeSeconds       float64 `json:"time_diff_seconds"`
	Trigger          int     `json:"trigger_type"`
	Source           int     `json:"source"`
	AuthID           string  `json:"auth_id,omitempty"`
	State            int     `json:"state"`
	StateDescription string  `json:"state_description"`
	DetectionReason  string  `json:"detection_reason"`
	Sequence         int     `json:"sequence_number"`
	Total            int     `json:"total_events"`
}

// Publisher delivers messages to a channel. Implementations must be safe
// for concurrent use by multiple lock monitors.
type Publisher interface {
	Publish(ctx context.Context, channel string, msg Message) error
	Close() error
}
