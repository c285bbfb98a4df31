package jalali

import (
	"fmt"
	"time"
)

// Period selects a Jalali month (Month 1-12) or a whole Jalali year (Month 0).
type Period struct {
	Year  int
	Month int
}

// MonthPeriod returns the period for one Jalali month.
func MonthPeriod(year, month int) Period {
	return Period{Year: year, Month: month}
}

// YearPeriod returns the period for a whole Jalali year.
func YearPeriod(year int) Period {
	return Period{Year: year}
}

// IsYear reports whether p covers a whole year.
func (p Period) IsYear() bool {
	return p.Month == 0
}

func (p Period) String() string {
	if p.IsYear() {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d/%02d", p.Year, p.Month)
}

// Validate reports whether p can be turned into a range.
func (p Period) Validate() error {
	if p.Year < MinYear || p.Year > MaxYear {
		return fmt.Errorf("year %d out of range [%d, %d]", p.Year, MinYear, MaxYear)
	}
	if p.Month < 0 || p.Month > 12 {
		return fmt.Errorf("month %d out of range [1, 12]", p.Month)
	}
	return nil
}

// Range returns the half-open Gregorian range [start, end) covered by p.
func (p Period) Range() (start, end time.Time, err error) {
	return PeriodRange(p.Year, p.Month)
}

// Days returns the number of days in p.
func (p Period) Days() int {
	if p.IsYear() {
		return YearLength(p.Year)
	}
	return MonthLength(p.Year, p.Month)
}

// Next returns the period immediately after p with the same granularity.
func (p Period) Next() Period {
	if p.IsYear() {
		return Period{Year: p.Year + 1}
	}
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Prev returns the period immediately before p with the same granularity.
func (p Period) Prev() Period {
	if p.IsYear() {
		return Period{Year: p.Year - 1}
	}
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Contains reports whether the Gregorian day t falls inside p.
func (p Period) Contains(t time.Time) bool {
	start, end, err := p.Range()
	if err != nil {
		return false
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !day.Before(start) && day.Before(end)
}

// PeriodRange returns the half-open Gregorian range [start, end) for a Jalali
// month, or for the whole year when month is 0. The end of a period is always
// the start of the following one.
func PeriodRange(year, month int) (start, end time.Time, err error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("period range: %w", err)
	}
	if p.IsYear() {
		return nowruz(year), nowruz(year + 1), nil
	}
	start = nowruz(year).AddDate(0, 0, dayOfYear(month, 1))
	return start, start.AddDate(0, 0, MonthLength(year, month)), nil
}

var monthNames = [...]string{
	"Farvardin", "Ordibehesht", "Khordad",
	"Tir", "Mordad", "Shahrivar",
	"Mehr", "Aban", "Azar",
	"Dey", "Bahman", "Esfand",
}

// MonthName returns the transliterated name of a Jalali month, or "" when
// month is not in 1..12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}
