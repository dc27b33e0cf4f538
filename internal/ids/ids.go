// Package ids generates correlation identifiers and millisecond-precision
// timestamps for every entity and event the core produces.
package ids

import (
	"time"

	"github.com/google/uuid"
)

// New returns a fresh random identifier suitable for project, agent,
// session, message, and broadcast primary keys.
func New() string {
	return uuid.NewString()
}

// Clock is the single source of "now" used by the store and event log so
// tests can substitute a deterministic implementation.
type Clock interface {
	Now() time.Time
}

// SystemClock reports the real wall-clock time, truncated to millisecond
// precision to match the record schema's stated resolution.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FixedClock always reports the same instant; used by tests.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}

// FormatTimestamp renders t as UTC ISO-8601 with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format("2006-01-02T15:04:05.000Z")
}
