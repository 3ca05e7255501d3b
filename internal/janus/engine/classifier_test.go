package engine

import (
	"testing"

	"github.com/BrandonDHaskell/Janus/internal/nuki"
)

// ── Keypad predicate ─────────────────────────────────────────────────────────

func TestClassify_KeypadPredicate(t *testing.T) {
	cases := []struct {
		name    string
		trigger int
		source  int
		keypad  bool
	}{
		{"pin via keypad", 255, 1, true},
		{"fingerprint via keypad", 255, 2, true},
		{"keypad trigger, unknown source", 255, 3, false},
		{"manual trigger, pin source", 1, 1, false},
		{"web trigger", 0, 0, false},
	}

	for _, tc := range cases {
		c := Classify(nuki.LogRecord{Trigger: tc.trigger, Source: tc.source})
		if c.Keypad != tc.keypad {
			t.Errorf("%s: expected keypad=%v, got %v", tc.name, tc.keypad, c.Keypad)
		}
	}
}

func TestClassify_NameAloneNeverClassifies(t *testing.T) {
	// A real user name on a non-keypad trigger must not classify as keypad.
	c := Classify(nuki.LogRecord{Trigger: 0, Source: 1, Name: "Alice"})
	if c.Keypad {
		t.Error("expected name-only record not to classify as keypad")
	}
}

// ── Detection reasons ────────────────────────────────────────────────────────

func TestClassify_ReasonTrigger255WithUser(t *testing.T) {
	c := Classify(nuki.LogRecord{Trigger: 255, Source: 2, Name: "Alice"})
	if c.Reason != ReasonTrigger255WithUser {
		t.Errorf("expected reason=%s, got %s", ReasonTrigger255WithUser, c.Reason)
	}
}

func TestClassify_ReasonWebConsoleExcluded(t *testing.T) {
	// The administrative web-console label must not produce the
	// trigger_255_with_user reason; the keypad placeholder still does the
	// source-based one.
	c := Classify(nuki.LogRecord{Trigger: 255, Source: 1, Name: "Nuki Web (Admin)"})
	if c.Reason == ReasonTrigger255WithUser {
		t.Errorf("expected web-console record not to get %s", ReasonTrigger255WithUser)
	}
	if c.Reason != "source_1_with_user" {
		t.Errorf("expected reason=source_1_with_user, got %s", c.Reason)
	}
}

func TestClassify_ReasonAuthUserUnlatch(t *testing.T) {
	c := Classify(nuki.LogRecord{
		Trigger: 255, Source: 5, Action: nuki.ActionUnlatch,
		Name: "Unknown", AuthID: "abc123",
	})
	if c.Reason != ReasonAuthUserUnlatch255 {
		t.Errorf("expected reason=%s, got %s", ReasonAuthUserUnlatch255, c.Reason)
	}
}

func TestClassify_ReasonUnknown(t *testing.T) {
	c := Classify(nuki.LogRecord{Trigger: 1, Action: nuki.ActionLock})
	if c.Reason != ReasonUnknown {
		t.Errorf("expected reason=%s, got %s", ReasonUnknown, c.Reason)
	}
	if !c.Manual {
		t.Error("expected manual=true for trigger 1")
	}
}

// ── Manual sub-classification ────────────────────────────────────────────────

func TestManualMethod(t *testing.T) {
	cases := []struct {
		name   string
		rec    nuki.LogRecord
		expect AccessMethod
	}{
		{"unlock without name", nuki.LogRecord{Action: nuki.ActionUnlock}, MethodManualExternalKey},
		{"unlock with name", nuki.LogRecord{Action: nuki.ActionUnlock, Name: "Alice"}, MethodManualInsideHandle},
		{"lock", nuki.LogRecord{Action: nuki.ActionLock}, MethodManualInsideHandle},
		{"unlatch", nuki.LogRecord{Action: nuki.ActionUnlatch}, MethodManualInsideHandle},
		{"lock n go", nuki.LogRecord{Action: nuki.ActionLockNGo}, MethodUnknown},
	}

	for _, tc := range cases {
		if got := ManualMethod(tc.rec); got != tc.expect {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.expect, got)
		}
	}
}
