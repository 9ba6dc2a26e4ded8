package ingest

import (
	"strings"
	"time"
)

// Day-first layouts seen in the export. Go accepts fractional seconds after
// the seconds field even when the layout omits them, and single-digit day or
// month for the "2" and "1" elements.
var dayFirstLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 3:04:05 PM",
	"2/1/2006 3:04 PM",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006 3:04:05 PM",
	"2-1-2006 3:04 PM",
	"2-1-2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2-Jan-2006 15:04:05",
	"2-Jan-2006",
	"2 Jan 2006",
	time.RFC3339,
}

// parseDayFirst parses an export timestamp. Wall clock values are kept as UTC.
func parseDayFirst(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// onOrBeforeCutoff reports whether t falls in or before the cutoff month
func onOrBeforeCutoff(t time.Time, year, month int) bool {
	return t.Year() < year || (t.Year() == year && int(t.Month()) <= month)
}

// weekOfMonth is ceil(day/7), 1-based
func weekOfMonth(t time.Time) int {
	return (t.Day() + 6) / 7
}
