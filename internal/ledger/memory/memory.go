package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"hesabdar/internal/core"
	"hesabdar/internal/ledger"
)

// Store keeps records and banks in process memory.
type Store struct {
	mu      sync.RWMutex
	records []core.Record
	banks   []core.BankAccount
	nextID  map[core.RecordKind]int64
	nextBID int64
	now     func() time.Time
}

func New() *Store {
	return &Store{nextID: map[core.RecordKind]int64{}, now: time.Now}
}

// Seed inserts records as-is, keeping their ids and creation times. Used to
// preload fixtures.
func (s *Store) Seed(records ...core.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.ID == 0 {
			s.nextID[r.Kind]++
			r.ID = s.nextID[r.Kind]
		} else if r.ID > s.nextID[r.Kind] {
			s.nextID[r.Kind] = r.ID
		}
		s.records = append(s.records, r)
	}
}

func (s *Store) FindRecords(_ context.Context, q ledger.RecordQuery) ([]core.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Record
	for _, r := range s.records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) FindSubscriptionsForService(_ context.Context, tenantID int64, year, month int) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Record
	for _, r := range s.records {
		if r.TenantID == tenantID && r.Kind == core.KindSubscription && r.ServiceYear == year &&
			(month == 0 || r.ServiceMonth == month) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListBanks(_ context.Context, tenantID int64) ([]core.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.BankAccount
	for _, b := range s.banks {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b core.BankAccount) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) GetBank(_ context.Context, tenantID, id int64) (core.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.banks {
		if b.TenantID == tenantID && b.ID == id {
			return b, nil
		}
	}
	return core.BankAccount{}, fmt.Errorf("bank %d: %w", id, ledger.ErrNotFound)
}

func (s *Store) RecentRecords(_ context.Context, tenantID int64, kind core.RecordKind, limit int) ([]core.Record, error) {
	s.mu.RLock()
	var out []core.Record
	for _, r := range s.records {
		if r.TenantID == tenantID && r.Kind == kind {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b core.Record) int { return core.CompareActivity(a.Activity(), b.Activity()) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountRecords(_ context.Context, tenantID int64, kind core.RecordKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.records {
		if r.TenantID == tenantID && r.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListTenants(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[int64]struct{}{}
	var out []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, r := range s.records {
		add(r.TenantID)
	}
	for _, b := range s.banks {
		add(b.TenantID)
	}
	slices.Sort(out)
	return out, nil
}

// InsertRecord validates and stores r, assigning an id and creation time.
func (s *Store) InsertRecord(_ context.Context, r core.Record) (core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID[r.Kind]++
	r.ID = s.nextID[r.Kind]
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.records = append(s.records, r)
	return r, nil
}

// UpdateRecord replaces the stored record with r's id, tenant and kind.
func (s *Store) UpdateRecord(_ context.Context, r core.Record) (core.Record, core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, old := range s.records {
		if old.TenantID == r.TenantID && old.Kind == r.Kind && old.ID == r.ID {
			r.CreatedAt = old.CreatedAt
			s.records[i] = r
			return old, r, nil
		}
	}
	return core.Record{}, core.Record{}, fmt.Errorf("%s %d: %w", r.Kind, r.ID, ledger.ErrNotFound)
}

func (s *Store) DeleteRecord(_ context.Context, tenantID int64, kind core.RecordKind, id int64) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.TenantID == tenantID && r.Kind == kind && r.ID == id {
			s.records = slices.Delete(s.records, i, i+1)
			return r, nil
		}
	}
	return core.Record{}, fmt.Errorf("%s %d: %w", kind, id, ledger.ErrNotFound)
}

func (s *Store) InsertBank(_ context.Context, b core.BankAccount) (core.BankAccount, error) {
	if err := b.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	b.Name = strings.TrimSpace(b.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.banks {
		if existing.TenantID == b.TenantID && strings.EqualFold(existing.Name, b.Name) {
			return core.BankAccount{}, fmt.Errorf("%q: %w", b.Name, ledger.ErrDuplicateBank)
		}
	}
	s.nextBID++
	b.ID = s.nextBID
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	s.banks = append(s.banks, b)
	return b, nil
}

func (s *Store) UpdateBank(_ context.Context, b core.BankAccount) (core.BankAccount, error) {
	if err := b.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	b.Name = strings.TrimSpace(b.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, existing := range s.banks {
		if existing.TenantID != b.TenantID {
			continue
		}
		if existing.ID == b.ID {
			idx = i
		} else if strings.EqualFold(existing.Name, b.Name) {
			return core.BankAccount{}, fmt.Errorf("%q: %w", b.Name, ledger.ErrDuplicateBank)
		}
	}
	if idx < 0 {
		return core.BankAccount{}, fmt.Errorf("bank %d: %w", b.ID, ledger.ErrNotFound)
	}
	b.CreatedAt = s.banks[idx].CreatedAt
	s.banks[idx] = b
	return b, nil
}

func (s *Store) DeleteBank(_ context.Context, tenantID, id int64) (core.BankAccount, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.banks {
		if b.TenantID != tenantID || b.ID != id {
			continue
		}
		detached := 0
		for j := range s.records {
			if s.records[j].TenantID == tenantID && s.records[j].BankID == id {
				s.records[j].BankID = 0
				detached++
			}
		}
		s.banks = slices.Delete(s.banks, i, i+1)
		return b, detached, nil
	}
	return core.BankAccount{}, 0, fmt.Errorf("bank %d: %w", id, ledger.ErrNotFound)
}

var _ ledger.Store = (*Store)(nil)
