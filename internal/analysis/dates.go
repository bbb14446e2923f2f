package analysis

import (
	"fmt"
	"strings"
	"time"
)

// Observation date formats seen across both processing backend generations.
// The modern API returns ISO timestamps like "2023-06-15T00:00:00.000000",
// the legacy one plain dates like "2023-06-15".
var observationTimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseObservationTime parses an observation timestamp, trying each known
// backend format. Returns time in UTC.
func ParseObservationTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	var lastErr error
	for _, format := range observationTimeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse observation time %q: %w", s, lastErr)
}

// NewTimeSeriesPoint builds a point from an upstream date string, keeping
// the string verbatim. A date no known format matches yields a zero Time;
// views then fall back to showing the raw string.
func NewTimeSeriesPoint(date string) TimeSeriesPoint {
	p := TimeSeriesPoint{Date: strings.TrimSpace(date)}
	if t, err := ParseObservationTime(p.Date); err == nil {
		p.Time = t
	}
	return p
}

// FormatDate renders a time as the YYYY-MM-DD form used in filenames and
// table cells.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DisplayDate returns the table cell text for a point's date: the parsed
// date when one exists, otherwise the raw upstream string.
func (p TimeSeriesPoint) DisplayDate() string {
	if p.Time.IsZero() {
		return p.Date
	}
	return FormatDate(p.Time)
}

// YearLabel returns the chart axis label for a point: the four-digit year
// when the date parsed, otherwise the raw upstream string.
func (p TimeSeriesPoint) YearLabel() string {
	if p.Time.IsZero() {
		return p.Date
	}
	return p.Time.UTC().Format("2006")
}
