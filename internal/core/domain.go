package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hesabdar/internal/jalali"
)

const (
	KindSubscription RecordKind = "subscription"
	KindExpense      RecordKind = "expense"
	KindOtherIncome  RecordKind = "other_income"

	StatusPaid   SubscriptionStatus = "paid"
	StatusUnpaid SubscriptionStatus = "unpaid"

	maxDescriptionLen = 200
)

type (
	RecordKind         string
	SubscriptionStatus string

	// Date is a calendar day stored as midnight UTC in the Gregorian calendar.
	// The zero value means the date is not set.
	Date struct {
		time.Time
	}

	// Record is one bookkeeping entry. Kind selects which of the optional
	// fields are meaningful.
	Record struct {
		ID       int64
		TenantID int64
		Kind     RecordKind
		Date     Date  // payment, spending or deposit date depending on Kind
		Amount   Money // never negative
		Category string // customer, expense issue or depositor
		// Description is free text, at most 200 characters.
		Description string
		BankID      int64 // destination bank for incomes, source bank for expenses; 0 when none
		CreatedAt   time.Time

		// subscription only
		Status       SubscriptionStatus
		ServiceYear  int // Jalali year the subscription pays for
		ServiceMonth int // Jalali month the subscription pays for
		Giga         int

		// expense only
		IsServerCost bool
	}

	BankAccount struct {
		ID            int64
		TenantID      int64
		Name          string
		AccountNumber string
		CreatedAt     time.Time
	}
)

var (
	ErrNegativeAmount       = errors.New("amount cannot be negative")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidKind          = errors.New("invalid record kind")
	ErrInvalidStatus        = errors.New("invalid subscription status")
	ErrInvalidServicePeriod = errors.New("invalid subscription service period")
	ErrEmptyBankName        = errors.New("empty bank name")
	ErrEmptyCategory        = errors.New("empty category")
	ErrInvalidTenant        = errors.New("invalid tenant")
	ErrInvalidDate          = errors.New("invalid date")
	ErrDescriptionTooLong   = errors.New("description too long")
	ErrNegativeGiga         = errors.New("giga cannot be negative")
)

// Kinds lists every record kind.
func Kinds() []RecordKind {
	return []RecordKind{KindSubscription, KindExpense, KindOtherIncome}
}

// ParseKind returns the RecordKind named by s.
func ParseKind(s string) (RecordKind, error) {
	k := RecordKind(strings.TrimSpace(s))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k RecordKind) Validate() error {
	switch k {
	case KindSubscription, KindExpense, KindOtherIncome:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
}

// DateField is the name of the column holding the semantic date of k.
func (k RecordKind) DateField() string {
	switch k {
	case KindSubscription:
		return "payment_date"
	case KindExpense:
		return "spending_date"
	case KindOtherIncome:
		return "deposit_date"
	}
	return ""
}

// IsIncome reports whether records of kind k add to income.
func (k RecordKind) IsIncome() bool {
	return k == KindSubscription || k == KindOtherIncome
}

func (s SubscriptionStatus) Validate() error {
	switch s {
	case StatusPaid, StatusUnpaid:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
}

// NewDate creates a Date from a Gregorian year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the civil day containing t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NewDate(y, int(m), d)
}

// DateFromTime truncates t to its calendar day.
func DateFromTime(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// IsEmpty reports whether the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Validate accepts an unset date, or one that falls inside the supported
// Jalali calendar range.
func (d Date) Validate() error {
	if d.IsZero() {
		return nil
	}
	if _, err := jalali.FromGregorian(d.Time); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return nil
}

// Jalali returns the Jalali form of d. ok is false for an unset date.
func (d Date) Jalali() (jd jalali.Date, ok bool) {
	if d.IsZero() {
		return jalali.Date{}, false
	}
	jd, err := jalali.FromGregorian(d.Time)
	if err != nil {
		return jalali.Date{}, false
	}
	return jd, true
}

// String renders d as a Jalali date, or jalali.NotSet.
func (d Date) String() string {
	return jalali.FormatGregorian(d.Time)
}

// ServicePeriod returns the Jalali month a subscription pays for.
func (r Record) ServicePeriod() jalali.Period {
	return jalali.MonthPeriod(r.ServiceYear, r.ServiceMonth)
}

// IsPaid reports whether r is a paid subscription.
func (r Record) IsPaid() bool {
	return r.Kind == KindSubscription && r.Status == StatusPaid
}

func (r Record) Validate() error {
	if r.TenantID <= 0 {
		return ErrInvalidTenant
	}
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if len(r.Description) > maxDescriptionLen {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, maxDescriptionLen)
	}
	if r.Kind == KindSubscription {
		if err := r.Status.Validate(); err != nil {
			return err
		}
		if r.ServiceMonth < 1 || r.ServiceMonth > 12 || r.ServiceYear < jalali.MinYear || r.ServiceYear > jalali.MaxYear {
			return fmt.Errorf("%w: %d/%d", ErrInvalidServicePeriod, r.ServiceYear, r.ServiceMonth)
		}
		if r.Giga < 0 {
			return ErrNegativeGiga
		}
	}
	return nil
}

func (b BankAccount) Validate() error {
	if b.TenantID <= 0 {
		return ErrInvalidTenant
	}
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyBankName
	}
	return nil
}
