package report

import (
	"context"
	"fmt"

	"hesabdar/internal/core"
)

// BankFlow is the money that moved through one bank account in a period.
type BankFlow struct {
	Period                  ResolvedPeriod
	Bank                    core.BankAccount
	IncomeFromSubscriptions core.Money
	IncomeFromOther         core.Money
	TotalExpense            core.Money
	NetFlow                 core.Money
}

type BankReport struct {
	Period      ResolvedPeriod
	Banks       []BankFlow // by bank name
	TotalAssets core.Money // sum of every bank's net flow
}

// BankNetFlow computes paid subscriptions plus other incomes routed to the
// bank, minus expenses paid from it. A bank without activity yields zeros.
//
// Subscriptions count in the period they pay for (their service month),
// whatever their payment date; incomes and expenses count by their date.
func (s *Service) BankNetFlow(ctx context.Context, tenantID, bankID int64, sel Selector) (BankFlow, error) {
	bank, err := s.repo.GetBank(ctx, tenantID, bankID)
	if err != nil {
		return BankFlow{}, fmt.Errorf("bank net flow: %w", err)
	}
	p, err := s.Resolve(ctx, sel)
	if err != nil {
		return BankFlow{}, err
	}
	w, err := s.loadBankWindow(ctx, tenantID, p, bank.ID)
	if err != nil {
		return BankFlow{}, fmt.Errorf("bank net flow %s: %w", p.Period, err)
	}

	flows := w.bankFlows()
	f := flows[bank.ID]
	f.Period = p
	f.Bank = bank
	return f, nil
}

// BankReport lists the net flow of every bank of the tenant.
func (s *Service) BankReport(ctx context.Context, tenantID int64, sel Selector) (BankReport, error) {
	p, err := s.Resolve(ctx, sel)
	if err != nil {
		return BankReport{}, err
	}
	banks, err := s.repo.ListBanks(ctx, tenantID)
	if err != nil {
		return BankReport{}, fmt.Errorf("list banks: %w", err)
	}
	w, err := s.loadBankWindow(ctx, tenantID, p, 0)
	if err != nil {
		return BankReport{}, fmt.Errorf("bank report %s: %w", p.Period, err)
	}

	flows := w.bankFlows()
	rep := BankReport{Period: p, Banks: make([]BankFlow, 0, len(banks))}
	for _, b := range banks {
		f := flows[b.ID]
		f.Period = p
		f.Bank = b
		rep.Banks = append(rep.Banks, f)
		rep.TotalAssets = rep.TotalAssets.Add(f.NetFlow)
	}
	return rep, nil
}

// loadBankWindow loads incomes and expenses dated inside p and the paid
// subscriptions serving p. A zero bankID keeps every bank.
func (s *Service) loadBankWindow(ctx context.Context, tenantID int64, p ResolvedPeriod, bankID int64) (window, error) {
	var (
		w   window
		err error
	)
	if w.otherIncomes, err = s.find(ctx, tenantID, core.KindOtherIncome, p.Start, p.End, bankID); err != nil {
		return window{}, err
	}
	if w.expenses, err = s.find(ctx, tenantID, core.KindExpense, p.Start, p.End, bankID); err != nil {
		return window{}, err
	}
	subs, err := s.repo.FindSubscriptionsForService(ctx, tenantID, p.Year, p.Month)
	if err != nil {
		return window{}, fmt.Errorf("find subscriptions for %s: %w", p.Period, err)
	}
	for _, r := range subs {
		if r.IsPaid() && (bankID == 0 || r.BankID == bankID) {
			w.subscriptions = append(w.subscriptions, r)
		}
	}
	return w, nil
}

// bankFlows buckets the window by bank id. Records without a bank are skipped.
func (w window) bankFlows() map[int64]BankFlow {
	flows := map[int64]BankFlow{}
	update := func(id int64, fn func(*BankFlow)) {
		if id == 0 {
			return
		}
		f := flows[id]
		fn(&f)
		f.NetFlow = f.IncomeFromSubscriptions.Add(f.IncomeFromOther).Sub(f.TotalExpense)
		flows[id] = f
	}
	for _, r := range w.subscriptions {
		if r.IsPaid() {
			update(r.BankID, func(f *BankFlow) { f.IncomeFromSubscriptions = f.IncomeFromSubscriptions.Add(r.Amount) })
		}
	}
	for _, r := range w.otherIncomes {
		update(r.BankID, func(f *BankFlow) { f.IncomeFromOther = f.IncomeFromOther.Add(r.Amount) })
	}
	for _, r := range w.expenses {
		update(r.BankID, func(f *BankFlow) { f.TotalExpense = f.TotalExpense.Add(r.Amount) })
	}
	return flows
}
