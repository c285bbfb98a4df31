package report

import (
	"context"
	"fmt"

	"hesabdar/internal/core"
	"hesabdar/internal/jalali"
)

// Totals is the income/expense summary of one period. Only paid
// subscriptions count as income.
type Totals struct {
	Period             ResolvedPeriod
	SubscriptionIncome core.Money
	SubscriptionCount  int
	OtherIncome        core.Money
	TotalIncome        core.Money
	TotalExpense       core.Money
	NetProfit          core.Money
	ServerCostTotal    core.Money
}

// DayTotals is Totals for a single day.
type DayTotals struct {
	Day jalali.Date
	Totals
}

// PeriodTotals sums a tenant's records whose semantic date falls in the
// selected month or year.
func (s *Service) PeriodTotals(ctx context.Context, tenantID int64, sel Selector) (Totals, error) {
	p, err := s.Resolve(ctx, sel)
	if err != nil {
		return Totals{}, err
	}
	w, err := s.load(ctx, tenantID, p.Start, p.End, 0)
	if err != nil {
		return Totals{}, fmt.Errorf("period totals %s: %w", p.Period, err)
	}
	t := w.totals()
	t.Period = p
	return t, nil
}

// TodayTotals sums the records dated today in the service location.
func (s *Service) TodayTotals(ctx context.Context, tenantID int64) (DayTotals, error) {
	now := s.now()
	day := core.DateOf(now, s.loc)
	start, end := day.Time, day.AddDate(0, 0, 1)

	w, err := s.load(ctx, tenantID, start, end, 0)
	if err != nil {
		return DayTotals{}, fmt.Errorf("today totals: %w", err)
	}
	today := jalali.Today(now, s.loc)
	t := w.totals()
	t.Period = ResolvedPeriod{
		Period: jalali.MonthPeriod(today.Year, today.Month),
		Start:  start,
		End:    end,
	}
	return DayTotals{Day: today, Totals: t}, nil
}

func (w window) totals() Totals {
	var t Totals
	for _, r := range w.subscriptions {
		if r.IsPaid() {
			t.SubscriptionIncome = t.SubscriptionIncome.Add(r.Amount)
			t.SubscriptionCount++
		}
	}
	for _, r := range w.otherIncomes {
		t.OtherIncome = t.OtherIncome.Add(r.Amount)
	}
	for _, r := range w.expenses {
		t.TotalExpense = t.TotalExpense.Add(r.Amount)
		if r.IsServerCost {
			t.ServerCostTotal = t.ServerCostTotal.Add(r.Amount)
		}
	}
	t.TotalIncome = t.SubscriptionIncome.Add(t.OtherIncome)
	t.NetProfit = t.TotalIncome.Sub(t.TotalExpense)
	return t
}
