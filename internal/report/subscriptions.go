package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"hesabdar/internal/core"
)

// SubscriptionFilter narrows the listed subscriptions. The paid and unpaid
// amounts always cover the whole month.
type SubscriptionFilter struct {
	Status core.SubscriptionStatus // empty means any
	Query  string                  // case-insensitive customer substring
}

type SubscriptionSummary struct {
	Period        ResolvedPeriod // the service month
	PaidAmount    core.Money
	UnpaidAmount  core.Money
	TotalAmount   core.Money
	TotalGiga     int // over the filtered subscriptions
	Count         int // filtered subscriptions
	Subscriptions []core.Record
}

// SubscriptionSummary reports the subscriptions whose service period is the
// given Jalali month, whatever their payment date.
func (s *Service) SubscriptionSummary(ctx context.Context, tenantID int64, year, month int, f SubscriptionFilter) (SubscriptionSummary, error) {
	p, err := s.Resolve(ctx, MonthSelector(year, month))
	if err != nil {
		return SubscriptionSummary{}, err
	}
	subs, err := s.repo.FindSubscriptionsForService(ctx, tenantID, p.Year, p.Month)
	if err != nil {
		return SubscriptionSummary{}, fmt.Errorf("subscription summary %s: %w", p.Period, err)
	}

	sum := SubscriptionSummary{Period: p}
	query := strings.ToLower(strings.TrimSpace(f.Query))
	for _, r := range subs {
		switch r.Status {
		case core.StatusPaid:
			sum.PaidAmount = sum.PaidAmount.Add(r.Amount)
		case core.StatusUnpaid:
			sum.UnpaidAmount = sum.UnpaidAmount.Add(r.Amount)
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(r.Category), query) {
			continue
		}
		sum.Subscriptions = append(sum.Subscriptions, r)
		sum.TotalGiga += r.Giga
	}
	sum.TotalAmount = sum.PaidAmount.Add(sum.UnpaidAmount)
	sum.Count = len(sum.Subscriptions)
	slices.SortStableFunc(sum.Subscriptions, func(a, b core.Record) int {
		return cmp.Compare(a.Category, b.Category)
	})
	return sum, nil
}
