// Package validate holds the parsing rules for free-text weight commands and
// the calendar-date helpers the challenge runs on.
package validate

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Weights outside this range are rejected as implausible.
var (
	MinWeight = decimal.NewFromInt(100)
	MaxWeight = decimal.NewFromInt(1000)
)

// Matches "200lbs", "200 lbs", "200.5lb" anywhere in the text.
var weightPattern = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*lbs?`)

// MatchWeight extracts the raw number from a "<number>lbs" pattern without
// range-checking it. Callers use it to tell a malformed command apart from an
// out-of-range value after ParseWeight has failed.
func MatchWeight(text string) (decimal.Decimal, bool) {
	m := weightPattern.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}

	w, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}

	return w, true
}

// ParseWeight extracts a weight in pounds from a command like
// "baseline 200lbs". It fails both when no weight pattern is present and when
// the matched value lies outside [MinWeight, MaxWeight]; the two failures are
// indistinguishable here on purpose.
func ParseWeight(text string) (decimal.Decimal, bool) {
	w, ok := MatchWeight(text)
	if !ok {
		return decimal.Zero, false
	}

	if w.LessThan(MinWeight) || w.GreaterThan(MaxWeight) {
		return decimal.Zero, false
	}

	return w, true
}

const dateLayout = "2006-01-02"

// ParseDate parses a strict YYYY-MM-DD string into a date at UTC midnight.
// Unpadded components and impossible calendar dates are rejected.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DateOf truncates t to its calendar date in t's location, normalized to UTC
// midnight so dates compare with Equal.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current local calendar date.
func Today() time.Time {
	return DateOf(time.Now())
}

// DaysBetween returns the absolute number of days between two dates,
// ceiling-rounded.
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}

// DaysUntil returns the signed day count from one date to another, negative
// when to is in the past.
func DaysUntil(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}
