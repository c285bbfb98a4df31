package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"hesabdar/internal/core"
	"hesabdar/internal/jalali"
	"hesabdar/internal/report"
)

// HeaderTenantID names the tenant every /api request acts for.
const HeaderTenantID = "X-Tenant-ID"

const maxBodyBytes = 64 << 10

type tenantKey struct{}

// fieldError is a request problem bound to one input field.
type fieldError struct {
	Field string
	Err   error
}

func (e *fieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }
func (e *fieldError) Unwrap() error { return e.Err }

var errNotANumber = errors.New("must be a whole number")

// withTenant rejects requests without a positive X-Tenant-ID and passes the
// id on in the request context.
func (s *Server) withTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseTenantID(r.Header.Get(HeaderTenantID))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing or invalid "+HeaderTenantID, "")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, id)))
	}
}

func parseTenantID(v string) (int64, error) {
	v = strings.TrimSpace(jalali.NormalizeDigits(v))
	if v == "" {
		return 0, core.ErrInvalidTenant
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrInvalidTenant
	}
	return id, nil
}

func tenantFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(tenantKey{}).(int64)
	return id
}

// intParam reads an optional whole-number query parameter written in ASCII
// or Persian digits. ok is false when the parameter is absent.
func intParam(r *http.Request, name string) (v int, ok bool, err error) {
	raw := strings.TrimSpace(jalali.NormalizeDigits(r.URL.Query().Get(name)))
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, &fieldError{Field: name, Err: errNotANumber}
	}
	return v, true, nil
}

// selector reads year and month. A missing year means the current Jalali
// year. A missing month means the whole year when monthOptional, the
// current month otherwise. Out-of-range values are left for the report
// service to clamp.
func (s *Server) selector(r *http.Request, monthOptional bool) (report.Selector, error) {
	today := s.reports.Today()
	year, ok, err := intParam(r, "year")
	if err != nil {
		return report.Selector{}, err
	}
	if !ok {
		year = today.Year
	}
	month, ok, err := intParam(r, "month")
	if err != nil {
		return report.Selector{}, err
	}
	if !ok {
		if monthOptional {
			return report.YearSelector(year), nil
		}
		month = today.Month
	}
	return report.MonthSelector(year, month), nil
}

// pathID reads a positive int64 path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(jalali.NormalizeDigits(r.PathValue(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, &fieldError{Field: name, Err: errNotANumber}
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// amountField accepts a JSON number or a string such as "1,250,000" or
// "۱۲۵۰".
type amountField struct {
	core.Money
	set bool
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	m, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	a.Money, a.set = m, true
	return nil
}

// recordRequest is the body of every record write. The label may be sent
// under its kind-specific name or as "category".
type recordRequest struct {
	Date         string      `json:"date"` // Jalali YYYY/MM/DD
	Amount       amountField `json:"amount"`
	Category     string      `json:"category"`
	Customer     string      `json:"customer"`
	Issue        string      `json:"issue"`
	Depositor    string      `json:"depositor"`
	Description  string      `json:"description"`
	BankID       int64       `json:"bank_id"`
	Status       string      `json:"status"`
	ServiceYear  int         `json:"service_year"`
	ServiceMonth int         `json:"service_month"`
	Giga         int         `json:"giga"`
	IsServerCost bool        `json:"is_server_cost"`
}

// record converts the body into a record of tenantID. A subscription with
// no service period pays for the Jalali month of its payment date.
func (req recordRequest) record(tenantID int64, kind core.RecordKind) (core.Record, error) {
	if !req.Amount.set {
		return core.Record{}, &fieldError{Field: "amount", Err: core.ErrInvalidAmount}
	}
	rec := core.Record{
		TenantID:     tenantID,
		Kind:         kind,
		Amount:       req.Amount.Money,
		Category:     strings.TrimSpace(firstNonEmpty(req.Customer, req.Issue, req.Depositor, req.Category)),
		Description:  strings.TrimSpace(req.Description),
		BankID:       req.BankID,
		Status:       core.SubscriptionStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		ServiceYear:  req.ServiceYear,
		ServiceMonth: req.ServiceMonth,
		Giga:         req.Giga,
		IsServerCost: req.IsServerCost,
	}
	if strings.TrimSpace(req.Date) != "" {
		t, err := jalali.ParseToGregorian(req.Date)
		if err != nil {
			return core.Record{}, &fieldError{Field: "date", Err: err}
		}
		rec.Date = core.DateFromTime(t)
	}
	if kind == core.KindSubscription && rec.ServiceYear == 0 && rec.ServiceMonth == 0 {
		if jd, ok := rec.Date.Jalali(); ok {
			rec.ServiceYear, rec.ServiceMonth = jd.Year, jd.Month
		}
	}
	return rec, nil
}

type bankRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
}

func (req bankRequest) bank(tenantID int64) core.BankAccount {
	return core.BankAccount{
		TenantID:      tenantID,
		Name:          strings.TrimSpace(req.Name),
		AccountNumber: strings.TrimSpace(req.AccountNumber),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
