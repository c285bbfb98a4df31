package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{}, true}, // unset
		{NewDate(100, 1, 1), false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateString(t *testing.T) {
	if got := NewDate(2024, 4, 3).String(); got != "1403/01/15" {
		t.Errorf("String() = %q, want 1403/01/15", got)
	}
	if got := (Date{}).String(); got != "Not Set" {
		t.Errorf("String() of unset date = %q, want Not Set", got)
	}
}

func TestDateOf(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	got := DateOf(time.Date(2024, 3, 19, 21, 0, 0, 0, time.UTC), tehran)
	if !got.Equal(NewDate(2024, 3, 20).Time) {
		t.Errorf("DateOf = %s, want 2024-03-20", got.Format(time.DateOnly))
	}
}

func TestRecordKind(t *testing.T) {
	fields := map[RecordKind]string{
		KindSubscription: "payment_date",
		KindExpense:      "spending_date",
		KindOtherIncome:  "deposit_date",
	}
	for k, want := range fields {
		if got := k.DateField(); got != want {
			t.Errorf("%s.DateField() = %q, want %q", k, got, want)
		}
	}
	if _, err := ParseKind("refund"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("ParseKind(refund) error = %v, want ErrInvalidKind", err)
	}
	if k, err := ParseKind(" expense "); err != nil || k != KindExpense {
		t.Errorf("ParseKind(expense) = %q, %v", k, err)
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{
		TenantID:     1,
		Kind:         KindSubscription,
		Date:         NewDate(2024, 4, 3),
		Amount:       NewMoney(500),
		Category:     "Ali",
		Status:       StatusPaid,
		ServiceYear:  1403,
		ServiceMonth: 1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Record)
		want   error
	}{
		{"negative amount", func(r *Record) { r.Amount = NewMoney(-1) }, ErrNegativeAmount},
		{"bad kind", func(r *Record) { r.Kind = "refund" }, ErrInvalidKind},
		{"bad status", func(r *Record) { r.Status = "pending" }, ErrInvalidStatus},
		{"service month 13", func(r *Record) { r.ServiceMonth = 13 }, ErrInvalidServicePeriod},
		{"empty category", func(r *Record) { r.Category = "  " }, ErrEmptyCategory},
		{"no tenant", func(r *Record) { r.TenantID = 0 }, ErrInvalidTenant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := good
			tt.mutate(&r)
			if err := r.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}

	long := good
	long.Description = strings.Repeat("x", 201)
	if err := long.Validate(); err == nil {
		t.Error("expected error for long description")
	}

	expense := Record{TenantID: 1, Kind: KindExpense, Amount: NewMoney(0), Category: "rent"}
	if err := expense.Validate(); err != nil {
		t.Errorf("zero-amount expense with unset date should be valid, got %v", err)
	}
}

func TestBankAccountValidate(t *testing.T) {
	if err := (BankAccount{TenantID: 1, Name: "Mellat"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (BankAccount{TenantID: 1, Name: " "}).Validate(); !errors.Is(err, ErrEmptyBankName) {
		t.Fatalf("expected ErrEmptyBankName, got %v", err)
	}
}

func TestSortActivity(t *testing.T) {
	created := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	items := []ActivityItem{
		{Kind: KindExpense, ID: 1, Date: NewDate(2024, 4, 1), CreatedAt: created},
		{Kind: KindSubscription, ID: 2, Date: NewDate(2024, 4, 3), CreatedAt: created},
		{Kind: KindOtherIncome, ID: 3, Date: Date{}, CreatedAt: created},
		{Kind: KindExpense, ID: 4, Date: NewDate(2024, 4, 1), CreatedAt: created.Add(time.Hour)},
		{Kind: KindExpense, ID: 5, Date: NewDate(2024, 4, 1), CreatedAt: created},
	}
	SortActivity(items)

	var got []int64
	for _, it := range items {
		got = append(got, it.ID)
	}
	want := []int64{2, 4, 5, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
