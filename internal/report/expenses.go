package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"hesabdar/internal/core"
)

// CategoryTotal is the spend of one expense category within a period.
type CategoryTotal struct {
	Category string
	Total    core.Money
	Count    int
	Share    decimal.Decimal // percent of the period's total expense, 2 places
}

type ExpenseRanking struct {
	Period     ResolvedPeriod
	Total      core.Money
	Categories []CategoryTotal
}

var hundred = decimal.NewFromInt(100)

// TopExpenses groups a period's expenses by category, ordered by total
// descending, then count descending, then category name. limit <= 0 returns
// every category.
func (s *Service) TopExpenses(ctx context.Context, tenantID int64, sel Selector, limit int) (ExpenseRanking, error) {
	p, err := s.Resolve(ctx, sel)
	if err != nil {
		return ExpenseRanking{}, err
	}
	expenses, err := s.find(ctx, tenantID, core.KindExpense, p.Start, p.End, 0)
	if err != nil {
		return ExpenseRanking{}, fmt.Errorf("top expenses %s: %w", p.Period, err)
	}

	cats := rankCategories(expenses)
	var total core.Money
	for _, c := range cats {
		total = total.Add(c.Total)
	}
	for i := range cats {
		cats[i].Share = share(cats[i].Total, total)
	}
	if limit > 0 && len(cats) > limit {
		cats = cats[:limit]
	}
	return ExpenseRanking{Period: p, Total: total, Categories: cats}, nil
}

func rankCategories(expenses []core.Record) []CategoryTotal {
	byName := map[string]*CategoryTotal{}
	for _, r := range expenses {
		name := strings.TrimSpace(r.Category)
		ct, ok := byName[name]
		if !ok {
			ct = &CategoryTotal{Category: name}
			byName[name] = ct
		}
		ct.Total = ct.Total.Add(r.Amount)
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(byName))
	for _, ct := range byName {
		out = append(out, *ct)
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := cmp.Compare(b.Total.Value, a.Total.Value); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

func share(part, total core.Money) decimal.Decimal {
	if total.Value == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Value).Mul(hundred).DivRound(decimal.NewFromInt(total.Value), 2)
}
