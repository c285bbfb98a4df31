package storage

import (
	"database/sql"
	"fmt"
	"time"

	"hesabdar/internal/core"
)

const (
	dateLayout      = time.DateOnly
	timestampLayout = "2006-01-02 15:04:05.000000000"
)

// kindSchema maps a record kind onto its table. Column names come from this
// fixed table only, never from callers.
type kindSchema struct {
	table string
	label string // customer, issue or depositor
	date  string
	extra string // status, service_year, service_month, giga, is_server_cost
}

var schemas = map[core.RecordKind]kindSchema{
	core.KindSubscription: {
		table: "subscriptions",
		label: "customer",
		date:  "payment_date",
		extra: "status, service_year, service_month, giga, 0",
	},
	core.KindExpense: {
		table: "expenses",
		label: "issue",
		date:  "spending_date",
		extra: "'', 0, 0, 0, is_server_cost",
	},
	core.KindOtherIncome: {
		table: "other_incomes",
		label: "depositor",
		date:  "deposit_date",
		extra: "'', 0, 0, 0, 0",
	},
}

func schemaFor(kind core.RecordKind) (kindSchema, error) {
	s, ok := schemas[kind]
	if !ok {
		return kindSchema{}, kind.Validate()
	}
	return s, nil
}

func (s kindSchema) selectColumns() string {
	return fmt.Sprintf("SELECT id, tenant_id, %s, amount, %s, bank_id, description, created_at, %s FROM %s",
		s.label, s.date, s.extra, s.table)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(kind core.RecordKind, row rowScanner) (core.Record, error) {
	var (
		r         core.Record
		date      sql.NullString
		bankID    sql.NullInt64
		createdAt string
		status    string
		amount    int64
		server    int64
	)
	err := row.Scan(&r.ID, &r.TenantID, &r.Category, &amount, &date, &bankID, &r.Description, &createdAt,
		&status, &r.ServiceYear, &r.ServiceMonth, &r.Giga, &server)
	if err != nil {
		return core.Record{}, err
	}
	r.Kind = kind
	r.Amount = core.NewMoney(amount)
	r.BankID = bankID.Int64
	r.Status = core.SubscriptionStatus(status)
	r.IsServerCost = server != 0
	if date.Valid && date.String != "" {
		t, err := time.Parse(dateLayout, date.String)
		if err != nil {
			return core.Record{}, fmt.Errorf("parse %s: %w", kind.DateField(), err)
		}
		r.Date = core.Date{Time: t}
	}
	if r.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return core.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	return r, nil
}

func nullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(dateLayout), Valid: true}
}

func nullBank(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
