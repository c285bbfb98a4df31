// Package ledger defines the ports between the reporting and write services
// and the record storage backends.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hesabdar/internal/core"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateBank = errors.New("bank name already exists for tenant")
)

// RecordQuery selects records of one kind for one tenant whose semantic date
// (Kind.DateField) lies in [Start, End). Records with an unset date never
// match. A zero BankID matches every bank.
type RecordQuery struct {
	TenantID int64
	Kind     core.RecordKind
	Start    time.Time
	End      time.Time
	BankID   int64
}

// DateField is the storage column the query filters on.
func (q RecordQuery) DateField() string {
	return q.Kind.DateField()
}

func (q RecordQuery) Validate() error {
	if q.TenantID <= 0 {
		return core.ErrInvalidTenant
	}
	if err := q.Kind.Validate(); err != nil {
		return err
	}
	if q.Start.IsZero() || q.End.IsZero() || !q.Start.Before(q.End) {
		return fmt.Errorf("invalid range [%s, %s)", q.Start.Format(time.DateOnly), q.End.Format(time.DateOnly))
	}
	return nil
}

// Matches reports whether r satisfies q.
func (q RecordQuery) Matches(r core.Record) bool {
	if r.TenantID != q.TenantID || r.Kind != q.Kind || r.Date.IsZero() {
		return false
	}
	if q.BankID != 0 && r.BankID != q.BankID {
		return false
	}
	return !r.Date.Before(q.Start) && r.Date.Before(q.End)
}

// Ports for outbound adapters.
type (
	RecordFinder interface {
		FindRecords(ctx context.Context, q RecordQuery) ([]core.Record, error)
	}

	// SubscriptionPeriodFinder returns subscriptions by the Jalali month they
	// pay for, regardless of payment date. Month 0 selects the whole year.
	SubscriptionPeriodFinder interface {
		FindSubscriptionsForService(ctx context.Context, tenantID int64, year, month int) ([]core.Record, error)
	}

	BankLister interface {
		ListBanks(ctx context.Context, tenantID int64) ([]core.BankAccount, error)
		GetBank(ctx context.Context, tenantID, id int64) (core.BankAccount, error)
	}

	// ActivitySource returns the newest records of one kind, ordered by
	// core.CompareActivity.
	ActivitySource interface {
		RecentRecords(ctx context.Context, tenantID int64, kind core.RecordKind, limit int) ([]core.Record, error)
		CountRecords(ctx context.Context, tenantID int64, kind core.RecordKind) (int, error)
	}

	TenantLister interface {
		ListTenants(ctx context.Context) ([]int64, error)
	}

	// Writer changes records and banks. Updates replace every field except
	// id, tenant, kind and creation time, and return the stored version
	// before and after the change.
	Writer interface {
		InsertRecord(ctx context.Context, r core.Record) (core.Record, error)
		UpdateRecord(ctx context.Context, r core.Record) (before, after core.Record, err error)
		DeleteRecord(ctx context.Context, tenantID int64, kind core.RecordKind, id int64) (core.Record, error)
		InsertBank(ctx context.Context, b core.BankAccount) (core.BankAccount, error)
		UpdateBank(ctx context.Context, b core.BankAccount) (core.BankAccount, error)
		// DeleteBank removes the bank and detaches every record routed
		// through it, returning the removed bank and how many records
		// were detached.
		DeleteBank(ctx context.Context, tenantID, id int64) (core.BankAccount, int, error)
	}

	// Reader is everything the reporting side needs.
	Reader interface {
		RecordFinder
		SubscriptionPeriodFinder
		BankLister
		ActivitySource
		TenantLister
	}

	Store interface {
		Reader
		Writer
	}
)
