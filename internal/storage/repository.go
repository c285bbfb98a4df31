package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"hesabdar/internal/core"
	"hesabdar/internal/ledger"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FindRecords implements ledger.RecordFinder.
func (r *SQLiteRepository) FindRecords(ctx context.Context, q ledger.RecordQuery) ([]core.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s, err := schemaFor(q.Kind)
	if err != nil {
		return nil, err
	}

	query := s.selectColumns() + fmt.Sprintf(" WHERE tenant_id = ? AND %[1]s >= ? AND %[1]s < ?", s.date)
	args := []any{q.TenantID, q.Start.Format(dateLayout), q.End.Format(dateLayout)}
	if q.BankID != 0 {
		query += " AND bank_id = ?"
		args = append(args, q.BankID)
	}
	query += fmt.Sprintf(" ORDER BY %s, id", s.date)

	out, err := r.queryRecords(ctx, q.Kind, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s records: %w", q.Kind, err)
	}
	return out, nil
}

// FindSubscriptionsForService implements ledger.SubscriptionPeriodFinder.
func (r *SQLiteRepository) FindSubscriptionsForService(ctx context.Context, tenantID int64, year, month int) ([]core.Record, error) {
	s := schemas[core.KindSubscription]
	query := s.selectColumns() + " WHERE tenant_id = ? AND service_year = ?"
	args := []any{tenantID, year}
	if month != 0 {
		query += " AND service_month = ?"
		args = append(args, month)
	}
	out, err := r.queryRecords(ctx, core.KindSubscription, query+" ORDER BY service_month, id", args...)
	if err != nil {
		return nil, fmt.Errorf("find subscriptions for %d/%02d: %w", year, month, err)
	}
	return out, nil
}

// RecentRecords implements ledger.ActivitySource.
func (r *SQLiteRepository) RecentRecords(ctx context.Context, tenantID int64, kind core.RecordKind, limit int) ([]core.Record, error) {
	s, err := schemaFor(kind)
	if err != nil {
		return nil, err
	}
	query := s.selectColumns() +
		fmt.Sprintf(" WHERE tenant_id = ? ORDER BY %[1]s IS NULL, %[1]s DESC, created_at DESC, id DESC LIMIT ?", s.date)
	out, err := r.queryRecords(ctx, kind, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent %s records: %w", kind, err)
	}
	return out, nil
}

// CountRecords implements ledger.ActivitySource.
func (r *SQLiteRepository) CountRecords(ctx context.Context, tenantID int64, kind core.RecordKind) (int, error) {
	s, err := schemaFor(kind)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table+" WHERE tenant_id = ?", tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s records: %w", kind, err)
	}
	return n, nil
}

// ListTenants implements ledger.TenantLister.
func (r *SQLiteRepository) ListTenants(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id FROM banks
		UNION SELECT tenant_id FROM subscriptions
		UNION SELECT tenant_id FROM expenses
		UNION SELECT tenant_id FROM other_incomes
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListBanks implements ledger.BankLister.
func (r *SQLiteRepository) ListBanks(ctx context.Context, tenantID int64) ([]core.BankAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, tenant_id, name, account_number, created_at FROM banks WHERE tenant_id = ? ORDER BY name", tenantID)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	defer rows.Close()

	var out []core.BankAccount
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBank implements ledger.BankLister.
func (r *SQLiteRepository) GetBank(ctx context.Context, tenantID, id int64) (core.BankAccount, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, name, account_number, created_at FROM banks WHERE tenant_id = ? AND id = ?", tenantID, id)
	b, err := scanBank(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BankAccount{}, fmt.Errorf("bank %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("get bank %d: %w", id, err)
	}
	return b, nil
}

// InsertRecord implements ledger.Writer.
func (r *SQLiteRepository) InsertRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	var (
		res sql.Result
		err error
	)
	switch rec.Kind {
	case core.KindSubscription:
		res, err = r.db.ExecContext(ctx, `
			INSERT INTO subscriptions (tenant_id, customer, amount, payment_date, bank_id, description, created_at,
				status, service_year, service_month, giga)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.TenantID, rec.Category, rec.Amount.Value, nullDate(rec.Date), nullBank(rec.BankID), rec.Description,
			formatTimestamp(rec.CreatedAt), string(rec.Status), rec.ServiceYear, rec.ServiceMonth, rec.Giga)
	case core.KindExpense:
		res, err = r.db.ExecContext(ctx, `
			INSERT INTO expenses (tenant_id, issue, amount, spending_date, bank_id, description, created_at, is_server_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.TenantID, rec.Category, rec.Amount.Value, nullDate(rec.Date), nullBank(rec.BankID), rec.Description,
			formatTimestamp(rec.CreatedAt), boolInt(rec.IsServerCost))
	case core.KindOtherIncome:
		res, err = r.db.ExecContext(ctx, `
			INSERT INTO other_incomes (tenant_id, depositor, amount, deposit_date, bank_id, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.TenantID, rec.Category, rec.Amount.Value, nullDate(rec.Date), nullBank(rec.BankID), rec.Description,
			formatTimestamp(rec.CreatedAt))
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("insert %s: %w", rec.Kind, err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return core.Record{}, fmt.Errorf("insert %s: %w", rec.Kind, err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"kind", rec.Kind,
		"id", rec.ID,
		"tenant_id", rec.TenantID,
		"amount", rec.Amount.Value)
	return rec, nil
}

// UpdateRecord implements ledger.Writer.
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, rec core.Record) (core.Record, core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, core.Record{}, err
	}
	s := schemas[rec.Kind]

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Record{}, core.Record{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, s.selectColumns()+" WHERE tenant_id = ? AND id = ?", rec.TenantID, rec.ID)
	before, err := scanRecord(rec.Kind, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.Record{}, fmt.Errorf("%s %d: %w", rec.Kind, rec.ID, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Record{}, core.Record{}, fmt.Errorf("load %s %d: %w", rec.Kind, rec.ID, err)
	}

	switch rec.Kind {
	case core.KindSubscription:
		_, err = tx.ExecContext(ctx, `
			UPDATE subscriptions SET customer = ?, amount = ?, payment_date = ?, bank_id = ?, description = ?,
				status = ?, service_year = ?, service_month = ?, giga = ?
			WHERE tenant_id = ? AND id = ?`,
			rec.Category, rec.Amount.Value, nullDate(rec.Date), nullBank(rec.BankID), rec.Description,
			string(rec.Status), rec.ServiceYear, rec.ServiceMonth, rec.Giga, rec.TenantID, rec.ID)
	case core.KindExpense:
		_, err = tx.ExecContext(ctx, `
			UPDATE expenses SET issue = ?, amount = ?, spending_date = ?, bank_id = ?, description = ?, is_server_cost = ?
			WHERE tenant_id = ? AND id = ?`,
			rec.Category, rec.Amount.Value, nullDate(rec.Date), nullBank(rec.BankID), rec.Description,
			boolInt(rec.IsServerCost), rec.TenantID, rec.ID)
	case core.KindOtherIncome:
		_, err = tx.ExecContext(ctx, `
			UPDATE other_incomes SET depositor = ?, amount = ?, deposit_date = ?, bank_id = ?, description = ?
			WHERE tenant_id = ? AND id = ?`,
			rec.Category, rec.Amount.Value, nullDate(rec.Date), nullBank(rec.BankID), rec.Description,
			rec.TenantID, rec.ID)
	}
	if err != nil {
		return core.Record{}, core.Record{}, fmt.Errorf("update %s %d: %w", rec.Kind, rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Record{}, core.Record{}, fmt.Errorf("commit update: %w", err)
	}

	rec.CreatedAt = before.CreatedAt
	slog.InfoContext(ctx, "Record updated in SQLite",
		"kind", rec.Kind,
		"id", rec.ID,
		"tenant_id", rec.TenantID,
		"amount", rec.Amount.Value)
	return before, rec, nil
}

// DeleteRecord implements ledger.Writer and returns the removed record.
func (r *SQLiteRepository) DeleteRecord(ctx context.Context, tenantID int64, kind core.RecordKind, id int64) (core.Record, error) {
	s, err := schemaFor(kind)
	if err != nil {
		return core.Record{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Record{}, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, s.selectColumns()+" WHERE tenant_id = ? AND id = ?", tenantID, id)
	rec, err := scanRecord(kind, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, fmt.Errorf("%s %d: %w", kind, id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("load %s %d: %w", kind, id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE tenant_id = ? AND id = ?", tenantID, id); err != nil {
		return core.Record{}, fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Record{}, fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "Record deleted from SQLite", "kind", kind, "id", id, "tenant_id", tenantID)
	return rec, nil
}

// InsertBank implements ledger.Writer.
func (r *SQLiteRepository) InsertBank(ctx context.Context, b core.BankAccount) (core.BankAccount, error) {
	if err := b.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	b.Name = strings.TrimSpace(b.Name)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.now()
	}
	b.CreatedAt = b.CreatedAt.UTC()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO banks (tenant_id, name, account_number, created_at) VALUES (?, ?, ?, ?)",
		b.TenantID, b.Name, b.AccountNumber, formatTimestamp(b.CreatedAt))
	if isUniqueViolation(err) {
		return core.BankAccount{}, fmt.Errorf("%q: %w", b.Name, ledger.ErrDuplicateBank)
	}
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("insert bank: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return core.BankAccount{}, fmt.Errorf("insert bank: %w", err)
	}
	return b, nil
}

// UpdateBank implements ledger.Writer.
func (r *SQLiteRepository) UpdateBank(ctx context.Context, b core.BankAccount) (core.BankAccount, error) {
	if err := b.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	b.Name = strings.TrimSpace(b.Name)

	res, err := r.db.ExecContext(ctx,
		"UPDATE banks SET name = ?, account_number = ? WHERE tenant_id = ? AND id = ?",
		b.Name, b.AccountNumber, b.TenantID, b.ID)
	if isUniqueViolation(err) {
		return core.BankAccount{}, fmt.Errorf("%q: %w", b.Name, ledger.ErrDuplicateBank)
	}
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("update bank %d: %w", b.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.BankAccount{}, fmt.Errorf("update bank %d: %w", b.ID, err)
	} else if n == 0 {
		return core.BankAccount{}, fmt.Errorf("bank %d: %w", b.ID, ledger.ErrNotFound)
	}
	return r.GetBank(ctx, b.TenantID, b.ID)
}

// DeleteBank implements ledger.Writer. Records routed through the bank keep
// their amounts and dates but lose the bank reference.
func (r *SQLiteRepository) DeleteBank(ctx context.Context, tenantID, id int64) (core.BankAccount, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.BankAccount{}, 0, fmt.Errorf("begin bank delete: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT id, tenant_id, name, account_number, created_at FROM banks WHERE tenant_id = ? AND id = ?", tenantID, id)
	b, err := scanBank(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BankAccount{}, 0, fmt.Errorf("bank %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.BankAccount{}, 0, fmt.Errorf("load bank %d: %w", id, err)
	}

	detached := 0
	for _, kind := range []core.RecordKind{core.KindSubscription, core.KindExpense, core.KindOtherIncome} {
		res, err := tx.ExecContext(ctx,
			"UPDATE "+schemas[kind].table+" SET bank_id = NULL WHERE tenant_id = ? AND bank_id = ?", tenantID, id)
		if err != nil {
			return core.BankAccount{}, 0, fmt.Errorf("detach %s from bank %d: %w", kind, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return core.BankAccount{}, 0, fmt.Errorf("detach %s from bank %d: %w", kind, id, err)
		}
		detached += int(n)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM banks WHERE tenant_id = ? AND id = ?", tenantID, id); err != nil {
		return core.BankAccount{}, 0, fmt.Errorf("delete bank %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.BankAccount{}, 0, fmt.Errorf("commit bank delete: %w", err)
	}

	slog.InfoContext(ctx, "Bank deleted from SQLite", "id", id, "tenant_id", tenantID, "detached_records", detached)
	return b, detached, nil
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, kind core.RecordKind, query string, args ...any) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(kind, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanBank(row rowScanner) (core.BankAccount, error) {
	var (
		b         core.BankAccount
		createdAt string
	)
	if err := row.Scan(&b.ID, &b.TenantID, &b.Name, &b.AccountNumber, &createdAt); err != nil {
		return core.BankAccount{}, err
	}
	t, err := time.Parse(timestampLayout, createdAt)
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("parse created_at: %w", err)
	}
	b.CreatedAt = t
	return b, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

var _ ledger.Store = (*SQLiteRepository)(nil)
