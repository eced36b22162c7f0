package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by due dates and habit
// completions.
const DateLayout = "2006-01-02"

// FormatDate renders t as YYYY-MM-DD in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// NormalizeDate validates s and returns it in canonical form. Empty input
// stays empty.
func NormalizeDate(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return FormatDate(d), nil
}
