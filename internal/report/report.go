// Package report aggregates ledger records into Jalali month and year
// windows: period totals, top expense categories, per-bank net flow, chart
// series, the activity feed and the subscription summary.
//
// Every operation reads through ledger.Reader and never writes. Selectors
// outside the supported range are clamped to the current Jalali year/month
// instead of failing; the resolved period reports whether that happened.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hesabdar/internal/core"
	"hesabdar/internal/jalali"
	"hesabdar/internal/ledger"
)

// Selector picks a Jalali month, or a whole year when HasMonth is false.
type Selector struct {
	Year     int
	Month    int
	HasMonth bool
}

func MonthSelector(year, month int) Selector {
	return Selector{Year: year, Month: month, HasMonth: true}
}

func YearSelector(year int) Selector {
	return Selector{Year: year}
}

// ResolvedPeriod is the period a report was computed over, with its
// half-open Gregorian range.
type ResolvedPeriod struct {
	jalali.Period
	Start   time.Time
	End     time.Time
	Clamped bool // the selector was out of range and replaced
}

type Service struct {
	repo ledger.Reader
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a report service. loc decides what "today" and the
// current Jalali month are; nil means UTC.
func NewService(repo ledger.Reader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Today returns the current Jalali date in the service location.
func (s *Service) Today() jalali.Date {
	return jalali.Today(s.now(), s.loc)
}

// Location returns the location used for "today".
func (s *Service) Location() *time.Location {
	return s.loc
}

// Resolve turns a selector into a concrete period, clamping an out-of-range
// year or month to the current one.
func (s *Service) Resolve(ctx context.Context, sel Selector) (ResolvedPeriod, error) {
	today := s.Today()
	p := jalali.Period{Year: sel.Year}
	clamped := false
	if sel.Year < jalali.MinYear || sel.Year > jalali.MaxYear {
		p.Year = today.Year
		clamped = true
	}
	if sel.HasMonth {
		p.Month = sel.Month
		if sel.Month < 1 || sel.Month > 12 {
			p.Month = today.Month
			clamped = true
		}
	}
	if clamped {
		slog.WarnContext(ctx, "Invalid period selector",
			"year", sel.Year,
			"month", sel.Month,
			"corrected_to", p.String())
	}

	start, end, err := p.Range()
	if err != nil {
		return ResolvedPeriod{}, fmt.Errorf("resolve period %s: %w", p, err)
	}
	return ResolvedPeriod{Period: p, Start: start, End: end, Clamped: clamped}, nil
}

func (s *Service) find(ctx context.Context, tenantID int64, kind core.RecordKind, start, end time.Time, bankID int64) ([]core.Record, error) {
	recs, err := s.repo.FindRecords(ctx, ledger.RecordQuery{
		TenantID: tenantID,
		Kind:     kind,
		Start:    start,
		End:      end,
		BankID:   bankID,
	})
	if err != nil {
		return nil, fmt.Errorf("find %s records: %w", kind, err)
	}
	return recs, nil
}

// window holds every record of a tenant inside one date range, by kind.
type window struct {
	subscriptions []core.Record
	otherIncomes  []core.Record
	expenses      []core.Record
}

func (s *Service) load(ctx context.Context, tenantID int64, start, end time.Time, bankID int64) (window, error) {
	var (
		w   window
		err error
	)
	if w.subscriptions, err = s.find(ctx, tenantID, core.KindSubscription, start, end, bankID); err != nil {
		return window{}, err
	}
	if w.otherIncomes, err = s.find(ctx, tenantID, core.KindOtherIncome, start, end, bankID); err != nil {
		return window{}, err
	}
	if w.expenses, err = s.find(ctx, tenantID, core.KindExpense, start, end, bankID); err != nil {
		return window{}, err
	}
	return w, nil
}

// incomes returns paid subscriptions and other incomes.
func (w window) incomes() []core.Record {
	out := make([]core.Record, 0, len(w.subscriptions)+len(w.otherIncomes))
	for _, r := range w.subscriptions {
		if r.IsPaid() {
			out = append(out, r)
		}
	}
	return append(out, w.otherIncomes...)
}
