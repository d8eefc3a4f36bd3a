package schema

import (
	"fmt"
	"time"
)

// TimestampFormat is the wire format for metadata timestamps.
const TimestampFormat = time.RFC3339

// ParseTimestamp parses an ISO-8601 timestamp string. Accepts RFC 3339
// (with Z or numeric offset) and, for compatibility with hand-edited
// records, a bare local form without a zone designator (treated as UTC).
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp: %q", s)
}

// FormatTimestamp renders a time in the wire format (UTC, second precision).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampFormat)
}
