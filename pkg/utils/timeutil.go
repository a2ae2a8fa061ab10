package utils

import (
	"strings"
	"time"
)

// DateFormat is the canonical on-the-wire date format (EDGAR filing dates,
// price CSV rows, API responses).
const DateFormat = "2006-01-02"

// asOfLayouts are the disclosed "as of" label formats seen in filings:
// month-name dates ("June 30, 2024", "June 30 2024") and slash-numeric
// dates ("6/30/2024", "06/30/24").
var asOfLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
}

// ParseAsOfLabel parses a disclosed "as of" date label. Labels are free text
// recovered from filings, so failure is a normal outcome: ok is false and
// the caller falls back to the filing date.
func ParseAsOfLabel(label string) (time.Time, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range asOfLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a canonical YYYY-MM-DD date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Day truncates a time to UTC midnight. Snapshots and daily closes are
// day-granular, so everything is aligned on this boundary.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthKey returns a year*100+month key used to bucket filings by calendar
// month when down-sampling old history.
func MonthKey(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// StalenessDays returns the whole days elapsed between a snapshot date and
// now. Negative inputs (future dates) clamp to zero.
func StalenessDays(asOf, now time.Time) int {
	d := int(Day(now).Sub(Day(asOf)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
