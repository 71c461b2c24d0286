package service

import (
	"fmt"
	"strings"
	"time"
)

// parsedStamp is a badge event timestamp normalized to its canonical keys
type parsedStamp struct {
	At      time.Time
	DateKey string // YYYYMMDD
	TimeKey string // HHMMSS
}

// timestampLayouts lists the formats vendor exports have been observed to
// use. Order matters: more specific layouts first.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006.01.02 15:04:05",
	"2006-01-02T15:04:05",
	"20060102150405",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"200601021504",
	// Date-only rows normalize to a midnight time key.
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
}

// parseEventTimestamp parses a badge event timestamp permissively: dashes,
// slashes, or no separators at all.
func parseEventTimestamp(raw string) (parsedStamp, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return parsedStamp{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range timestampLayouts {
		at, err := time.ParseInLocation(layout, value, time.Local)
		if err != nil {
			continue
		}
		return parsedStamp{
			At:      at,
			DateKey: at.Format("20060102"),
			TimeKey: at.Format("150405"),
		}, nil
	}

	return parsedStamp{}, fmt.Errorf("unparsable timestamp %q", raw)
}

// dateLayouts lists the formats a single date may appear in inside a period
// field
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
}

func parseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", raw)
}

// expandPeriod expands a period field — either a single date or a
// "start ~ end" range — into the calendar dates it covers, keeping only
// dates inside the target year/month. Dates outside the month are filtered,
// not an error; a reversed range is.
func expandPeriod(raw string, year, month int) ([]time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, fmt.Errorf("empty period")
	}

	var start, end time.Time
	var err error
	if idx := strings.Index(value, "~"); idx >= 0 {
		start, err = parseDate(value[:idx])
		if err != nil {
			return nil, err
		}
		end, err = parseDate(value[idx+1:])
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, fmt.Errorf("reversed period %q", raw)
		}
	} else {
		start, err = parseDate(value)
		if err != nil {
			return nil, err
		}
		end = start
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Year() == year && int(d.Month()) == month {
			dates = append(dates, d)
		}
	}
	return dates, nil
}
