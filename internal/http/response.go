package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"hesabdar/internal/core"
	"hesabdar/internal/jalali"
	applog "hesabdar/internal/log"
	"hesabdar/internal/ledger"
	"hesabdar/internal/report"
)

const isoDate = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	writeJSON(w, status, errorResponse{Error: msg, Field: field})
}

// writeServiceError maps err to a status code. Field-bound date errors are
// 422, other validation errors 400, unknown failures 500 and logged.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var fe *fieldError
	field := ""
	if errors.As(err, &fe) {
		field = fe.Field
	}

	switch {
	case errors.Is(err, jalali.ErrInvalidDateFormat):
		if field == "" {
			field = "date"
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error(), field)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), field)
	case errors.Is(err, ledger.ErrDuplicateBank):
		writeError(w, http.StatusConflict, err.Error(), "name")
	case fe != nil:
		writeError(w, http.StatusBadRequest, err.Error(), field)
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error(), validationField(err))
	default:
		applog.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op,
			applog.NewFields().WithTenant(tenantFrom(r.Context())))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

var validationFields = []struct {
	err   error
	field string
}{
	{core.ErrNegativeAmount, "amount"},
	{core.ErrInvalidAmount, "amount"},
	{core.ErrInvalidKind, "kind"},
	{core.ErrInvalidStatus, "status"},
	{core.ErrInvalidServicePeriod, "service_month"},
	{core.ErrEmptyBankName, "name"},
	{core.ErrEmptyCategory, "category"},
	{core.ErrInvalidTenant, ""},
	{core.ErrInvalidDate, "date"},
	{core.ErrDescriptionTooLong, "description"},
	{core.ErrNegativeGiga, "giga"},
}

func isValidationError(err error) bool {
	for _, v := range validationFields {
		if errors.Is(err, v.err) {
			return true
		}
	}
	return false
}

func validationField(err error) string {
	for _, v := range validationFields {
		if errors.Is(err, v.err) {
			return v.field
		}
	}
	return ""
}

type moneyJSON struct {
	Value     int64  `json:"value"`
	Formatted string `json:"formatted"`
}

func money(m core.Money) moneyJSON {
	return moneyJSON{Value: m.Value, Formatted: m.String()}
}

type periodJSON struct {
	Label   string `json:"label"`
	Year    int    `json:"year"`
	Month   int    `json:"month,omitempty"`
	Start   string `json:"start"` // Gregorian, inclusive
	End     string `json:"end"`   // Gregorian, exclusive
	Clamped bool   `json:"clamped"`
}

func period(p report.ResolvedPeriod) periodJSON {
	return periodJSON{
		Label:   p.Period.String(),
		Year:    p.Year,
		Month:   p.Month,
		Start:   p.Start.Format(isoDate),
		End:     p.End.Format(isoDate),
		Clamped: p.Clamped,
	}
}

type totalsJSON struct {
	Period             periodJSON `json:"period"`
	SubscriptionIncome moneyJSON  `json:"subscription_income"`
	SubscriptionCount  int        `json:"subscription_count"`
	OtherIncome        moneyJSON  `json:"other_income"`
	TotalIncome        moneyJSON  `json:"total_income"`
	TotalExpense       moneyJSON  `json:"total_expense"`
	NetProfit          moneyJSON  `json:"net_profit"`
	ServerCostTotal    moneyJSON  `json:"server_cost_total"`
	Cached             bool       `json:"cached"`
}

func totals(t report.Totals) totalsJSON {
	return totalsJSON{
		Period:             period(t.Period),
		SubscriptionIncome: money(t.SubscriptionIncome),
		SubscriptionCount:  t.SubscriptionCount,
		OtherIncome:        money(t.OtherIncome),
		TotalIncome:        money(t.TotalIncome),
		TotalExpense:       money(t.TotalExpense),
		NetProfit:          money(t.NetProfit),
		ServerCostTotal:    money(t.ServerCostTotal),
	}
}

type recordJSON struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	Date          string    `json:"date"` // Jalali, or "Not Set"
	GregorianDate string    `json:"gregorian_date,omitempty"`
	Amount        moneyJSON `json:"amount"`
	Category      string    `json:"category"`
	Description   string    `json:"description,omitempty"`
	BankID        int64     `json:"bank_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	ServicePeriod string    `json:"service_period,omitempty"`
	Giga          int       `json:"giga,omitempty"`
	IsServerCost  bool      `json:"is_server_cost,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func record(r core.Record) recordJSON {
	out := recordJSON{
		ID:           r.ID,
		Kind:         string(r.Kind),
		Date:         r.Date.String(),
		Amount:       money(r.Amount),
		Category:     r.Category,
		Description:  r.Description,
		BankID:       r.BankID,
		IsServerCost: r.IsServerCost,
		CreatedAt:    r.CreatedAt,
	}
	if !r.Date.IsEmpty() {
		out.GregorianDate = r.Date.Format(isoDate)
	}
	if r.Kind == core.KindSubscription {
		out.Status = string(r.Status)
		out.ServicePeriod = r.ServicePeriod().String()
		out.Giga = r.Giga
	}
	return out
}

type bankJSON struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"account_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func bank(b core.BankAccount) bankJSON {
	return bankJSON{ID: b.ID, Name: b.Name, AccountNumber: b.AccountNumber, CreatedAt: b.CreatedAt}
}

type bankFlowJSON struct {
	Bank                    bankJSON  `json:"bank"`
	IncomeFromSubscriptions moneyJSON `json:"income_from_subscriptions"`
	IncomeFromOther         moneyJSON `json:"income_from_other"`
	TotalExpense            moneyJSON `json:"total_expense"`
	NetFlow                 moneyJSON `json:"net_flow"`
}

func bankFlow(f report.BankFlow) bankFlowJSON {
	return bankFlowJSON{
		Bank:                    bank(f.Bank),
		IncomeFromSubscriptions: money(f.IncomeFromSubscriptions),
		IncomeFromOther:         money(f.IncomeFromOther),
		TotalExpense:            money(f.TotalExpense),
		NetFlow:                 money(f.NetFlow),
	}
}

type seriesJSON struct {
	Period  periodJSON `json:"period"`
	Labels  []string   `json:"labels"`
	Income  []int64    `json:"income"`
	Expense []int64    `json:"expense"`
}

func series(s report.Series) seriesJSON {
	return seriesJSON{Period: period(s.Period), Labels: s.Labels, Income: s.Income, Expense: s.Expense}
}

type activityItemJSON struct {
	Kind   string    `json:"kind"`
	ID     int64     `json:"id"`
	Date   string    `json:"date"`
	Amount moneyJSON `json:"amount"`
	Label  string    `json:"label"`
}

type activityJSON struct {
	Items      []activityItemJSON `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalItems int                `json:"total_items"`
	TotalPages int                `json:"total_pages"`
}

func activity(p report.ActivityPage) activityJSON {
	items := make([]activityItemJSON, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, activityItemJSON{
			Kind:   string(it.Kind),
			ID:     it.ID,
			Date:   it.Date.String(),
			Amount: money(it.Amount),
			Label:  it.Label,
		})
	}
	return activityJSON{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}
