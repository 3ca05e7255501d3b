package engine

import "time"

// admit reports whether a record should produce a new event. The record's
// age relative to the poll time must fall in the open interval
// [0, window) — a negative age means clock skew or a future timestamp and
// is rejected — and its raw date string must sort strictly after the
// watermark. The raw string is compared, not the parsed instant, so the
// dedup boundary follows the feed's own ordering exactly.
func admit(rawDate string, occurredAt, now time.Time, watermark string, window time.Duration) bool {
	age := now.Sub(occurredAt)
	if age < 0 || age >= window {
		return false
	}
	return watermark == "" || rawDate > watermark
}
