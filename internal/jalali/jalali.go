// Package jalali converts between the Jalali (Persian solar) calendar and the
// Gregorian calendar used for storage.
//
// All calendar arithmetic lives here. The start of each Jalali year (Nowruz)
// is derived from the leap-break table below, and every other quantity
// (leap years, month lengths, period ranges, conversions in both directions)
// is computed from those year starts, so range computation and display can
// never disagree about whether a year is leap.
//
// Gregorian dates are represented as time.Time values at midnight UTC.
package jalali

import (
	"fmt"
	"time"
)

const (
	// MinYear and MaxYear bound the Jalali years this package converts.
	MinYear = 1
	MaxYear = 3176

	daysInFirstHalf = 186 // six 31-day months
)

// breaks lists the Jalali years at which the 33-year leap cycle shifts.
var breaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// Date is a calendar date in the Jalali calendar. The zero value is not a
// valid date.
type Date struct {
	Year  int
	Month int // 1-12
	Day   int // 1-31
}

// NewDate returns the Jalali date for year, month and day without validating it.
func NewDate(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// String formats the date as YYYY/MM/DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Validate reports whether d names an existing day.
func (d Date) Validate() error {
	if d.Year < MinYear || d.Year > MaxYear {
		return fmt.Errorf("year %d out of range [%d, %d]", d.Year, MinYear, MaxYear)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("month %d out of range [1, 12]", d.Month)
	}
	if n := MonthLength(d.Year, d.Month); d.Day < 1 || d.Day > n {
		return fmt.Errorf("day %d out of range [1, %d] for %04d/%02d", d.Day, n, d.Year, d.Month)
	}
	return nil
}

// Gregorian returns the Gregorian date (midnight UTC) equivalent to d.
func (d Date) Gregorian() (time.Time, error) {
	if err := d.Validate(); err != nil {
		return time.Time{}, err
	}
	return nowruz(d.Year).AddDate(0, 0, dayOfYear(d.Month, d.Day)), nil
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// FromGregorian returns the Jalali date for the calendar day of t. Only the
// year, month and day of t (in its own location) are used.
func FromGregorian(t time.Time) (Date, error) {
	y, m, d := t.Date()
	g := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	jy := y - 621
	if jy < MinYear || jy > MaxYear+1 {
		return Date{}, fmt.Errorf("gregorian date %s outside supported range", g.Format(time.DateOnly))
	}
	start := nowruz(jy)
	if g.Before(start) {
		jy--
		if jy < MinYear {
			return Date{}, fmt.Errorf("gregorian date %s outside supported range", g.Format(time.DateOnly))
		}
		start = nowruz(jy)
	}
	if jy > MaxYear {
		return Date{}, fmt.Errorf("gregorian date %s outside supported range", g.Format(time.DateOnly))
	}

	k := daysBetween(start, g)
	if k < daysInFirstHalf {
		return Date{Year: jy, Month: 1 + k/31, Day: k%31 + 1}, nil
	}
	k -= daysInFirstHalf
	return Date{Year: jy, Month: 7 + k/30, Day: k%30 + 1}, nil
}

// IsLeap reports whether Jalali year y has 366 days (a 30-day Esfand).
func IsLeap(year int) bool {
	return YearLength(year) == 366
}

// YearLength returns the number of days in Jalali year y.
func YearLength(year int) int {
	return daysBetween(nowruz(year), nowruz(year+1))
}

// MonthLength returns the number of days in the given Jalali month, or 0 if
// month is not in 1..12.
func MonthLength(year, month int) int {
	switch {
	case month >= 1 && month <= 6:
		return 31
	case month >= 7 && month <= 11:
		return 30
	case month == 12:
		if IsLeap(year) {
			return 30
		}
		return 29
	default:
		return 0
	}
}

// Today returns the Jalali date of the civil day containing now in loc.
// A nil loc means UTC.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	d, err := FromGregorian(now.In(loc))
	if err != nil {
		// now is always far inside the supported range
		panic(err)
	}
	return d
}

// nowruz returns the Gregorian date of 1 Farvardin of Jalali year jy.
func nowruz(jy int) time.Time {
	gy := jy + 621
	leapJ := -14
	jp := breaks[0]
	jump := 0
	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}
	n := jy - jp
	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}
	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march := 20 + leapJ - leapG
	return time.Date(gy, time.March, march, 0, 0, 0, 0, time.UTC)
}

// dayOfYear returns the zero-based day index of month/day within a Jalali year.
func dayOfYear(month, day int) int {
	if month <= 7 {
		return (month-1)*31 + day - 1
	}
	return daysInFirstHalf + (month-7)*30 + day - 1
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
