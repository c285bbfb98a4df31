package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"hesabdar/internal/core"
	"hesabdar/internal/jalali"
	applog "hesabdar/internal/log"
	"hesabdar/internal/report"
)

const (
	defaultTopLimit = 5
	maxTopLimit     = 50
	maxPageSize     = 100
)

func totalsPrefix(tenantID int64) string {
	return fmt.Sprintf("totals:%d:", tenantID)
}

func totalsKey(tenantID int64, sel report.Selector) string {
	if !sel.HasMonth {
		return fmt.Sprintf("%s%d", totalsPrefix(tenantID), sel.Year)
	}
	return fmt.Sprintf("%s%d/%d", totalsPrefix(tenantID), sel.Year, sel.Month)
}

// cacheable reports whether sel names a period that resolves to itself.
// Clamped selectors depend on today's date and are never cached.
func cacheable(sel report.Selector) bool {
	if sel.Year < jalali.MinYear || sel.Year > jalali.MaxYear {
		return false
	}
	return !sel.HasMonth || (sel.Month >= 1 && sel.Month <= 12)
}

func (s *Server) readContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.readTimeout)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantFrom(r.Context())
	sel, err := s.selector(r, true)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}

	ctx, cancel := s.readContext(r)
	defer cancel()
	var (
		t   report.Totals
		hit bool
	)
	if cacheable(sel) {
		t, hit, err = s.totals.Get(ctx, totalsKey(tenantID, sel), func(ctx context.Context) (report.Totals, error) {
			return s.reports.PeriodTotals(ctx, tenantID, sel)
		})
	} else {
		t, err = s.reports.PeriodTotals(ctx, tenantID, sel)
	}
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	out := totals(t)
	out.Cached = hit
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.readContext(r)
	defer cancel()
	t, err := s.reports.TodayTotals(ctx, tenantFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Day string `json:"day"`
		totalsJSON
	}{Day: t.Day.String(), totalsJSON: totals(t.Totals)})
}

func (s *Server) handleTopExpenses(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selector(r, true)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	limit, ok, err := intParam(r, "limit")
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	if !ok || limit <= 0 {
		limit = defaultTopLimit
	}
	limit = min(limit, maxTopLimit)

	ctx, cancel := s.readContext(r)
	defer cancel()
	ranking, err := s.reports.TopExpenses(ctx, tenantFrom(r.Context()), sel, limit)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}

	type categoryJSON struct {
		Category string    `json:"category"`
		Total    moneyJSON `json:"total"`
		Count    int       `json:"count"`
		Share    string    `json:"share"` // percent, two places
	}
	cats := make([]categoryJSON, 0, len(ranking.Categories))
	for _, c := range ranking.Categories {
		cats = append(cats, categoryJSON{
			Category: c.Category,
			Total:    money(c.Total),
			Count:    c.Count,
			Share:    c.Share.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Period     periodJSON     `json:"period"`
		Total      moneyJSON      `json:"total"`
		Categories []categoryJSON `json:"categories"`
	}{period(ranking.Period), money(ranking.Total), cats})
}

func (s *Server) handleBankReport(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selector(r, true)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	ctx, cancel := s.readContext(r)
	defer cancel()
	rep, err := s.reports.BankReport(ctx, tenantFrom(r.Context()), sel)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	banks := make([]bankFlowJSON, 0, len(rep.Banks))
	for _, f := range rep.Banks {
		banks = append(banks, bankFlow(f))
	}
	writeJSON(w, http.StatusOK, struct {
		Period      periodJSON     `json:"period"`
		Banks       []bankFlowJSON `json:"banks"`
		TotalAssets moneyJSON      `json:"total_assets"`
	}{period(rep.Period), banks, money(rep.TotalAssets)})
}

func (s *Server) handleBankFlow(w http.ResponseWriter, r *http.Request) {
	bankID, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	sel, err := s.selector(r, true)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	ctx, cancel := s.readContext(r)
	defer cancel()
	flow, err := s.reports.BankNetFlow(ctx, tenantFrom(r.Context()), bankID, sel)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Period periodJSON `json:"period"`
		bankFlowJSON
	}{period(flow.Period), bankFlow(flow)})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selector(r, false)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	filter := report.SubscriptionFilter{Query: r.URL.Query().Get("q")}
	if st := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))); st != "" {
		filter.Status = core.SubscriptionStatus(st)
		if err := filter.Status.Validate(); err != nil {
			s.writeServiceError(w, r, applog.OpReport, &fieldError{Field: "status", Err: err})
			return
		}
	}

	ctx, cancel := s.readContext(r)
	defer cancel()
	sum, err := s.reports.SubscriptionSummary(ctx, tenantFrom(r.Context()), sel.Year, sel.Month, filter)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	subs := make([]recordJSON, 0, len(sum.Subscriptions))
	for _, rec := range sum.Subscriptions {
		subs = append(subs, record(rec))
	}
	writeJSON(w, http.StatusOK, struct {
		Period        periodJSON   `json:"period"`
		PaidAmount    moneyJSON    `json:"paid_amount"`
		UnpaidAmount  moneyJSON    `json:"unpaid_amount"`
		TotalAmount   moneyJSON    `json:"total_amount"`
		TotalGiga     int          `json:"total_giga"`
		Count         int          `json:"count"`
		Subscriptions []recordJSON `json:"subscriptions"`
	}{
		Period:        period(sum.Period),
		PaidAmount:    money(sum.PaidAmount),
		UnpaidAmount:  money(sum.UnpaidAmount),
		TotalAmount:   money(sum.TotalAmount),
		TotalGiga:     sum.TotalGiga,
		Count:         sum.Count,
		Subscriptions: subs,
	})
}

func (s *Server) handleDailyChart(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selector(r, false)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	ctx, cancel := s.readContext(r)
	defer cancel()
	out, err := s.reports.DailySeries(ctx, tenantFrom(r.Context()), sel.Year, sel.Month)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, series(out))
}

func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selector(r, true)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	ctx, cancel := s.readContext(r)
	defer cancel()
	out, err := s.reports.MonthlySeries(ctx, tenantFrom(r.Context()), sel.Year)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, series(out))
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	page, _, err := intParam(r, "page")
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	size, _, err := intParam(r, "page_size")
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	size = min(size, maxPageSize)

	ctx, cancel := s.readContext(r)
	defer cancel()
	p, err := s.reports.Activity(ctx, tenantFrom(r.Context()), page, size)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, activity(p))
}
