package timecalc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPeriod is returned by ParsePeriod for unrecognised shorthands.
var ErrInvalidPeriod = errors.New("invalid period")

var periodRe = regexp.MustCompile(`^(week|month)(?:-([0-9]+))?$`)

// ParsePeriod turns a period shorthand into an inclusive [from, to] range
// normalised to 00:00:00 and 23:59:59.
//
//	""        today .. today
//	week      Monday .. Sunday of the week containing now
//	week-N    the same range shifted back N weeks
//	month     first .. last day of the current month
//	month-N   first .. last day of the month N months back
func ParsePeriod(period string, now time.Time) (time.Time, time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		return StartOfDay(now), EndOfDay(now), nil
	}

	m := periodRe.FindStringSubmatch(period)
	if m == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w %q: supports week, month, week-N, month-N", ErrInvalidPeriod, period)
	}

	back := 0
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidPeriod, period, err)
		}
		back = n
	}

	if m[1] == "week" {
		monday, sunday := WeekRange(now)
		return monday.AddDate(0, 0, -7*back), sunday.AddDate(0, 0, -7*back), nil
	}
	first, last := MonthRange(now, back)
	return first, last, nil
}

// ParseDay parses a YYYY-MM-DD string as a local calendar day.
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	// Go's weekday: Sunday=0, Monday=1, …, Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	monday := StartOfDay(t.AddDate(0, 0, -(wd - 1)))
	sunday := EndOfDay(monday.AddDate(0, 0, 6))
	return monday, sunday
}

// MonthRange returns the first and last day of the month monthsBack months
// before the month containing t.
func MonthRange(t time.Time, monthsBack int) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month()-time.Month(monthsBack), 1, 0, 0, 0, 0, t.Location())
	// Day 0 of the following month is the last day of this one.
	last := time.Date(first.Year(), first.Month()+1, 0, 23, 59, 59, 0, t.Location())
	return first, last
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// RoundHours converts seconds to hours rounded to two decimals.
func RoundHours(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*100) / 100
}

// FormatHours prints hours with the shortest representation: 1.5, 2, 0.25.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// FormatDayShort formats a day like 3/1/2019 (no zero padding).
func FormatDayShort(t time.Time) string {
	return t.Format("2/1/2006")
}
