package storage

import "time"

// TimeFormat is the layout of createdAt and updatedAt: UTC with millisecond
// precision and a fixed width, so lexical order is chronological order.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a timestamp written by FormatTime. RFC 3339 strings are
// accepted too.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeFormat, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// NextUpdatedAt returns the updatedAt value to store at now for a page last
// modified at prev. When prev is a valid timestamp the result is strictly
// later, even if the clock did not advance.
func NextUpdatedAt(now time.Time, prev string) string {
	next := now.UTC().Truncate(time.Millisecond)
	if p, err := ParseTime(prev); err == nil && !next.After(p) {
		next = p.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return FormatTime(next)
}
