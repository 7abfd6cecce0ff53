package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"accident-analytics/models"
)

// Accepted date and time spellings. Day-first slashes follow the source
// portal's locale; ISO forms come from CSV exports.
var (
	dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", "2/1/2006", "02-01-2006"}
	timeLayouts = []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "15:04:05.000"}
)

var errNoLayout = errors.New("no known date/time layout matches")

// DeriveTemporal joins a date and a time string with a single space, parses
// the result and derives the calendar fields. On failure it returns a nil
// *models.Temporal and a *models.TemporalParseError, never a partial value.
func DeriveTemporal(date, clock string) (*models.Temporal, error) {
	ts, err := parseTimestamp(date, clock)
	if err != nil {
		return nil, &models.TemporalParseError{Date: date, Time: clock, Err: err}
	}
	return models.NewTemporal(ts), nil
}

func parseTimestamp(date, clock string) (time.Time, error) {
	date = datePart(strings.TrimSpace(date))
	clock = clockPart(strings.TrimSpace(clock))
	if date == "" || clock == "" {
		return time.Time{}, errors.New("empty date or time")
	}

	combined := date + " " + clock
	for _, dl := range dateLayouts {
		for _, tl := range timeLayouts {
			if ts, err := time.ParseInLocation(dl+" "+tl, combined, time.UTC); err == nil {
				return ts, nil
			}
		}
	}
	return time.Time{}, errNoLayout
}

// datePart strips a midnight time suffix that spreadsheet exports attach to
// date-only cells and converts Excel serial dates to ISO form.
func datePart(s string) string {
	if fields := strings.Fields(s); len(fields) == 2 && isMidnight(fields[1]) {
		s = fields[0]
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// clockPart converts an Excel day fraction (0 <= f < 1) to HH:MM:SS.
func clockPart(s string) string {
	if strings.Contains(s, ":") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f >= 1 {
		return s
	}
	d := time.Duration(f*24*float64(time.Hour)).Round(time.Second)
	return time.Time{}.Add(d).Format("15:04:05")
}

func isMidnight(s string) bool {
	return s == "00:00:00" || s == "00:00" || s == "00:00:00.000"
}
