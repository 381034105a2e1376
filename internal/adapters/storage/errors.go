package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is wrapped by every store when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// timeLayout is how timestamps are stored in TEXT columns.
const timeLayout = time.RFC3339Nano

// FormatTime renders t for storage in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime accepts the stored layout plus the SQLite default datetime format.
func ParseTime(s string) (time.Time, error) {
	for _, f := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}

// Limit maps a non-positive list limit to SQLite's "no limit".
func Limit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
