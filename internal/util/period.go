package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var periodLayouts = []string{
	"2006-01",
	"2006-01-02",
	"2006/01",
	"2006/01/02",
	"200601",
	"Jan 2006",
	"January 2006",
	"Jan-2006",
	"Jan-06",
	"01/2006",
	time.RFC3339,
}

// ParsePeriod reads a month identifier in any of the layouts seen in financial
// extracts and returns the first instant of that month in UTC.
func ParsePeriod(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	// spreadsheet serial dates
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		t := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(serial))
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("invalid period format: %s", s)
}

// SamePeriod reports whether two month identifiers name the same month.
func SamePeriod(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if strings.EqualFold(a, b) {
		return true
	}
	ta, errA := ParsePeriod(a)
	tb, errB := ParsePeriod(b)
	return errA == nil && errB == nil && ta.Equal(tb)
}

// ComparePeriods orders month identifiers chronologically. Parsable periods sort
// before unparsable ones, plain numbers compare numerically, anything else lexically.
func ComparePeriods(a, b string) int {
	ta, errA := ParsePeriod(a)
	tb, errB := ParsePeriod(b)
	switch {
	case errA == nil && errB == nil:
		return ta.Compare(tb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	}
	na, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	nb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
