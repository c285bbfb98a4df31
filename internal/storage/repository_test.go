package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"hesabdar/internal/core"
	"hesabdar/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "hesabdar.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRoundTripEachKind(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	bank, err := repo.InsertBank(ctx, core.BankAccount{TenantID: 1, Name: "Mellat", AccountNumber: "123"})
	if err != nil {
		t.Fatalf("InsertBank: %v", err)
	}

	records := []core.Record{
		{TenantID: 1, Kind: core.KindSubscription, Date: core.NewDate(2024, 4, 3), Amount: core.NewMoney(500),
			Category: "Ali", BankID: bank.ID, Status: core.StatusPaid, ServiceYear: 1403, ServiceMonth: 1, Giga: 20},
		{TenantID: 1, Kind: core.KindExpense, Date: core.NewDate(2024, 4, 8), Amount: core.NewMoney(800),
			Category: "server", BankID: bank.ID, IsServerCost: true},
		{TenantID: 1, Kind: core.KindOtherIncome, Date: core.NewDate(2024, 4, 5), Amount: core.NewMoney(200),
			Category: "Reza", Description: "setup fee"},
	}
	for _, rec := range records {
		saved, err := repo.InsertRecord(ctx, rec)
		if err != nil {
			t.Fatalf("InsertRecord(%s): %v", rec.Kind, err)
		}
		if saved.ID == 0 || saved.CreatedAt.IsZero() {
			t.Fatalf("InsertRecord(%s) did not assign id/created_at: %+v", rec.Kind, saved)
		}

		got, err := repo.FindRecords(ctx, ledger.RecordQuery{
			TenantID: 1,
			Kind:     rec.Kind,
			Start:    core.NewDate(2024, 3, 20).Time,
			End:      core.NewDate(2024, 4, 20).Time,
		})
		if err != nil {
			t.Fatalf("FindRecords(%s): %v", rec.Kind, err)
		}
		if len(got) != 1 {
			t.Fatalf("FindRecords(%s) returned %d records", rec.Kind, len(got))
		}
		g := got[0]
		if g.Amount != rec.Amount || !g.Date.Equal(rec.Date.Time) || g.Category != rec.Category ||
			g.BankID != rec.BankID || g.Status != rec.Status || g.ServiceMonth != rec.ServiceMonth ||
			g.Giga != rec.Giga || g.IsServerCost != rec.IsServerCost || g.Description != rec.Description {
			t.Errorf("round trip mismatch:\n got  %+v\n want %+v", g, rec)
		}
	}
}

func TestFindRecordsRangeAndBank(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, r := range []core.Record{
		{TenantID: 1, Kind: core.KindExpense, Date: core.NewDate(2024, 3, 19), Amount: core.NewMoney(1), Category: "before"},
		{TenantID: 1, Kind: core.KindExpense, Date: core.NewDate(2024, 3, 20), Amount: core.NewMoney(2), Category: "first", BankID: 7},
		{TenantID: 1, Kind: core.KindExpense, Date: core.NewDate(2024, 4, 19), Amount: core.NewMoney(4), Category: "last"},
		{TenantID: 1, Kind: core.KindExpense, Date: core.NewDate(2024, 4, 20), Amount: core.NewMoney(8), Category: "end"},
		{TenantID: 1, Kind: core.KindExpense, Amount: core.NewMoney(16), Category: "undated"},
		{TenantID: 2, Kind: core.KindExpense, Date: core.NewDate(2024, 3, 25), Amount: core.NewMoney(32), Category: "tenant 2"},
	} {
		if _, err := repo.InsertRecord(ctx, r); err != nil {
			t.Fatalf("InsertRecord: %v", err)
		}
	}

	q := ledger.RecordQuery{TenantID: 1, Kind: core.KindExpense, Start: core.NewDate(2024, 3, 20).Time, End: core.NewDate(2024, 4, 20).Time}
	got, err := repo.FindRecords(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Category != "first" || got[1].Category != "last" {
		t.Fatalf("unexpected records: %+v", got)
	}

	q.BankID = 7
	got, _ = repo.FindRecords(ctx, q)
	if len(got) != 1 || got[0].Category != "first" {
		t.Fatalf("bank filter returned %+v", got)
	}

	recent, err := repo.RecentRecords(ctx, 1, core.KindExpense, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 5 || recent[0].Category != "end" || recent[4].Category != "undated" {
		t.Fatalf("unexpected recent order: %+v", recent)
	}
	if n, _ := repo.CountRecords(ctx, 1, core.KindExpense); n != 5 {
		t.Fatalf("CountRecords = %d, want 5", n)
	}
	tenants, _ := repo.ListTenants(ctx)
	if len(tenants) != 2 || tenants[0] != 1 || tenants[1] != 2 {
		t.Fatalf("ListTenants = %v", tenants)
	}
}

func TestDeleteRecord(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, err := repo.InsertRecord(ctx, core.Record{TenantID: 1, Kind: core.KindOtherIncome, Date: core.NewDate(2024, 4, 1), Amount: core.NewMoney(5), Category: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.DeleteRecord(ctx, 2, core.KindOtherIncome, saved.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("delete from another tenant: expected ErrNotFound, got %v", err)
	}
	deleted, err := repo.DeleteRecord(ctx, 1, core.KindOtherIncome, saved.ID)
	if err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if deleted.ID != saved.ID || deleted.Amount.Value != 5 {
		t.Fatalf("DeleteRecord returned %+v", deleted)
	}
	if n, _ := repo.CountRecords(ctx, 1, core.KindOtherIncome); n != 0 {
		t.Fatalf("record still present")
	}
}

func TestBanksAndSubscriptionsForService(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	repo.now = func() time.Time { return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC) }

	if _, err := repo.InsertBank(ctx, core.BankAccount{TenantID: 1, Name: "Saman"}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertBank(ctx, core.BankAccount{TenantID: 1, Name: "saman"}); !errors.Is(err, ledger.ErrDuplicateBank) {
		t.Fatalf("expected ErrDuplicateBank, got %v", err)
	}
	if _, err := repo.GetBank(ctx, 1, 999); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	banks, err := repo.ListBanks(ctx, 1)
	if err != nil || len(banks) != 1 || !banks[0].CreatedAt.Equal(repo.now()) {
		t.Fatalf("ListBanks = %+v, %v", banks, err)
	}

	for _, month := range []int{1, 1, 2} {
		_, err := repo.InsertRecord(ctx, core.Record{TenantID: 1, Kind: core.KindSubscription, Amount: core.NewMoney(100),
			Category: "c", Status: core.StatusUnpaid, ServiceYear: 1403, ServiceMonth: month})
		if err != nil {
			t.Fatal(err)
		}
	}
	subs, err := repo.FindSubscriptionsForService(ctx, 1, 1403, 1)
	if err != nil || len(subs) != 2 {
		t.Fatalf("FindSubscriptionsForService = %d records, %v", len(subs), err)
	}
	whole, err := repo.FindSubscriptionsForService(ctx, 1, 1403, 0)
	if err != nil || len(whole) != 3 || whole[2].ServiceMonth != 2 {
		t.Fatalf("FindSubscriptionsForService whole year = %+v, %v", whole, err)
	}
}

func TestUpdateRecord(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	bank, err := repo.InsertBank(ctx, core.BankAccount{TenantID: 1, Name: "Mellat"})
	if err != nil {
		t.Fatal(err)
	}
	saved, err := repo.InsertRecord(ctx, core.Record{TenantID: 1, Kind: core.KindSubscription, Date: core.NewDate(2024, 4, 3),
		Amount: core.NewMoney(500), Category: "Ali", Status: core.StatusUnpaid, ServiceYear: 1403, ServiceMonth: 1})
	if err != nil {
		t.Fatal(err)
	}

	edit := saved
	edit.Date = core.NewDate(2025, 3, 25)
	edit.Amount = core.NewMoney(650)
	edit.Status = core.StatusPaid
	edit.BankID = bank.ID
	edit.ServiceMonth = 2
	edit.Giga = 30
	before, after, err := repo.UpdateRecord(ctx, edit)
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if before.Amount.Value != 500 || before.Status != core.StatusUnpaid || !after.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("before=%+v after=%+v", before, after)
	}

	got, err := repo.FindSubscriptionsForService(ctx, 1, 1403, 2)
	if err != nil || len(got) != 1 {
		t.Fatalf("FindSubscriptionsForService = %d, %v", len(got), err)
	}
	r := got[0]
	if r.Amount.Value != 650 || r.Status != core.StatusPaid || r.BankID != bank.ID || r.Giga != 30 ||
		r.Date.Format(time.DateOnly) != "2025-03-25" {
		t.Errorf("stored = %+v", r)
	}

	missing := edit
	missing.TenantID = 2
	if _, _, err := repo.UpdateRecord(ctx, missing); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("other tenant: %v", err)
	}
	invalid := edit
	invalid.ServiceMonth = 13
	if _, _, err := repo.UpdateRecord(ctx, invalid); !errors.Is(err, core.ErrInvalidServicePeriod) {
		t.Errorf("invalid service month: %v", err)
	}
}

func TestUpdateAndDeleteBank(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mellat, _ := repo.InsertBank(ctx, core.BankAccount{TenantID: 1, Name: "Mellat"})
	saman, _ := repo.InsertBank(ctx, core.BankAccount{TenantID: 1, Name: "Saman"})

	if _, err := repo.UpdateBank(ctx, core.BankAccount{ID: saman.ID, TenantID: 1, Name: "MELLAT"}); !errors.Is(err, ledger.ErrDuplicateBank) {
		t.Errorf("rename onto existing name: %v", err)
	}
	if _, err := repo.UpdateBank(ctx, core.BankAccount{ID: saman.ID, TenantID: 2, Name: "Saman"}); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("other tenant: %v", err)
	}
	renamed, err := repo.UpdateBank(ctx, core.BankAccount{ID: mellat.ID, TenantID: 1, Name: "Bank Mellat", AccountNumber: "6104"})
	if err != nil || renamed.Name != "Bank Mellat" || renamed.AccountNumber != "6104" || !renamed.CreatedAt.Equal(mellat.CreatedAt) {
		t.Fatalf("UpdateBank = %+v, %v", renamed, err)
	}

	for _, rec := range []core.Record{
		{TenantID: 1, Kind: core.KindExpense, Date: core.NewDate(2024, 4, 1), Amount: core.NewMoney(10), Category: "a", BankID: mellat.ID},
		{TenantID: 1, Kind: core.KindOtherIncome, Date: core.NewDate(2024, 4, 1), Amount: core.NewMoney(20), Category: "b", BankID: mellat.ID},
		{TenantID: 1, Kind: core.KindExpense, Date: core.NewDate(2024, 4, 1), Amount: core.NewMoney(30), Category: "c", BankID: saman.ID},
	} {
		if _, err := repo.InsertRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	removed, detached, err := repo.DeleteBank(ctx, 1, mellat.ID)
	if err != nil || removed.Name != "Bank Mellat" || detached != 2 {
		t.Fatalf("DeleteBank = %+v, %d, %v", removed, detached, err)
	}
	if _, err := repo.GetBank(ctx, 1, mellat.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("deleted bank still readable: %v", err)
	}

	expenses, err := repo.FindRecords(ctx, ledger.RecordQuery{TenantID: 1, Kind: core.KindExpense,
		Start: core.NewDate(2024, 3, 20).Time, End: core.NewDate(2024, 4, 20).Time})
	if err != nil || len(expenses) != 2 {
		t.Fatalf("expenses = %+v, %v", expenses, err)
	}
	for _, r := range expenses {
		if (r.Category == "a" && r.BankID != 0) || (r.Category == "c" && r.BankID != saman.ID) {
			t.Errorf("bank reference after delete: %+v", r)
		}
	}
	if _, _, err := repo.DeleteBank(ctx, 1, mellat.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
