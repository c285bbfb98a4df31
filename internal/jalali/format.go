package jalali

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// NotSet is what FormatGregorian returns for an absent date.
const NotSet = "Not Set"

// ErrInvalidDateFormat is returned (wrapped in a *FormatError) when a Jalali
// date string is malformed or names a day that does not exist.
var ErrInvalidDateFormat = errors.New("invalid date format")

// FormatError describes why a date string was rejected.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid date format %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrInvalidDateFormat }

var digitFolder = runes.Map(func(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	}
	return r
})

// NormalizeDigits rewrites Persian (۰-۹) and Arabic-Indic (٠-٩) digits in s as
// ASCII digits. Other runes are left untouched.
func NormalizeDigits(s string) string {
	out, _, err := transform.String(digitFolder, s)
	if err != nil {
		return s
	}
	return out
}

// Parse reads a Jalali date written as YYYY/MM/DD or YYYY-MM-DD. Persian and
// Arabic-Indic digits are accepted. Impossible dates are rejected, never
// clamped.
func Parse(s string) (Date, error) {
	norm := strings.TrimSpace(NormalizeDigits(s))
	norm = strings.ReplaceAll(norm, "-", "/")
	parts := strings.Split(norm, "/")
	if len(parts) != 3 {
		return Date{}, &FormatError{Input: s, Reason: "expected YYYY/MM/DD"}
	}

	widths := [3][2]int{{4, 4}, {1, 2}, {1, 2}}
	var fields [3]int
	for i, part := range parts {
		if len(part) < widths[i][0] || len(part) > widths[i][1] || !allDigits(part) {
			return Date{}, &FormatError{Input: s, Reason: "expected YYYY/MM/DD"}
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Date{}, &FormatError{Input: s, Reason: err.Error()}
		}
		fields[i] = n
	}

	d := Date{Year: fields[0], Month: fields[1], Day: fields[2]}
	if err := d.Validate(); err != nil {
		return Date{}, &FormatError{Input: s, Reason: err.Error()}
	}
	return d, nil
}

// ParseToGregorian parses a Jalali date string and returns the equivalent
// Gregorian day at midnight UTC.
func ParseToGregorian(s string) (time.Time, error) {
	d, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	t, err := d.Gregorian()
	if err != nil {
		return time.Time{}, &FormatError{Input: s, Reason: err.Error()}
	}
	return t, nil
}

// FormatGregorian renders the Gregorian day t as a Jalali YYYY/MM/DD string.
// A zero or unconvertible t renders as NotSet.
func FormatGregorian(t time.Time) string {
	if t.IsZero() {
		return NotSet
	}
	d, err := FromGregorian(t)
	if err != nil {
		return NotSet
	}
	return d.String()
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
