package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedTimestamp reports a log record date that does not parse as
// an ISO-8601 date-time. Callers skip the record and continue the batch.
var ErrMalformedTimestamp = errors.New("malformed log timestamp")

const (
	layoutOffset = "2006-01-02T15:04:05.999999999-07:00"
	layoutNaive  = "2006-01-02T15:04:05.999999999"
)

// NormalizeTimestamp parses the heterogeneous timestamp strings the log
// feed produces into a single UTC instant. A trailing Z is rewritten to
// an explicit +00:00 offset; strings carrying a + offset parse as
// offset-aware; everything else parses as a naive timestamp taken to be
// UTC. A timestamp with a negative zone offset lands in the naive branch
// and is reinterpreted as UTC wall time, matching the feed's observed
// behavior.
func NormalizeTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrMalformedTimestamp)
	}

	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	if strings.Contains(s, "+") {
		t, err := time.Parse(layoutOffset, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
		}
		return t.UTC(), nil
	}

	t, err := time.Parse(layoutNaive, s)
	if err != nil {
		if t, offErr := time.Parse(layoutOffset, s); offErr == nil {
			y, mo, d := t.Date()
			h, mi, sec := t.Clock()
			return time.Date(y, mo, d, h, mi, sec, t.Nanosecond(), time.UTC), nil
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
	}
	return t.UTC(), nil
}
