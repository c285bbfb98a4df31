package report

import (
	"context"
	"fmt"
	"time"

	"hesabdar/internal/core"
	"hesabdar/internal/jalali"
)

// Series is chart data. Labels, Income and Expense are positionally aligned
// and every point is present, zero or not.
type Series struct {
	Period  ResolvedPeriod
	Labels  []string
	Income  []int64
	Expense []int64
}

func newSeries(p ResolvedPeriod, n int) Series {
	return Series{
		Period:  p,
		Labels:  make([]string, n),
		Income:  make([]int64, n),
		Expense: make([]int64, n),
	}
}

// DailySeries has one point per day of the Jalali month, labelled "01".."31".
func (s *Service) DailySeries(ctx context.Context, tenantID int64, year, month int) (Series, error) {
	p, err := s.Resolve(ctx, MonthSelector(year, month))
	if err != nil {
		return Series{}, err
	}
	w, err := s.load(ctx, tenantID, p.Start, p.End, 0)
	if err != nil {
		return Series{}, fmt.Errorf("daily series %s: %w", p.Period, err)
	}

	n := jalali.MonthLength(p.Year, p.Month)
	out := newSeries(p, n)
	for i := range n {
		out.Labels[i] = fmt.Sprintf("%02d", i+1)
	}
	bucket := func(d core.Date) int {
		return int(d.Sub(p.Start).Hours() / 24)
	}
	for _, r := range w.incomes() {
		if i := bucket(r.Date); i >= 0 && i < n {
			out.Income[i] += r.Amount.Value
		}
	}
	for _, r := range w.expenses {
		if i := bucket(r.Date); i >= 0 && i < n {
			out.Expense[i] += r.Amount.Value
		}
	}
	return out, nil
}

// MonthlySeries has twelve points labelled with Jalali month names. Records
// are bucketed by Jalali month boundaries.
func (s *Service) MonthlySeries(ctx context.Context, tenantID int64, year int) (Series, error) {
	p, err := s.Resolve(ctx, YearSelector(year))
	if err != nil {
		return Series{}, err
	}
	w, err := s.load(ctx, tenantID, p.Start, p.End, 0)
	if err != nil {
		return Series{}, fmt.Errorf("monthly series %s: %w", p.Period, err)
	}

	var ends [12]time.Time
	out := newSeries(p, 12)
	for m := 1; m <= 12; m++ {
		_, end, err := jalali.PeriodRange(p.Year, m)
		if err != nil {
			return Series{}, err
		}
		ends[m-1] = end
		out.Labels[m-1] = jalali.MonthName(m)
	}
	bucket := func(d core.Date) int {
		for i, end := range ends {
			if d.Before(end) {
				return i
			}
		}
		return len(ends) - 1
	}
	for _, r := range w.incomes() {
		out.Income[bucket(r.Date)] += r.Amount.Value
	}
	for _, r := range w.expenses {
		out.Expense[bucket(r.Date)] += r.Amount.Value
	}
	return out, nil
}
