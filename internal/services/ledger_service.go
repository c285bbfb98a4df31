package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hesabdar/internal/amqp"
	"hesabdar/internal/core"
	"hesabdar/internal/ledger"
)

// Publisher announces record changes to other processes.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// LedgerService validates and stores ledger writes, then tells the rest of
// the system about them: registered change hooks run synchronously (report
// cache invalidation) and a change message is published best effort.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
	onChange  []func(tenantID int64)
}

// NewLedgerService creates the service. publisher may be nil.
func NewLedgerService(store ledger.Store, publisher Publisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

// OnChange registers fn to be called after every successful record write.
func (s *LedgerService) OnChange(fn func(tenantID int64)) {
	s.onChange = append(s.onChange, fn)
}

// CreateExpense stores r as an expense.
func (s *LedgerService) CreateExpense(ctx context.Context, r core.Record) (core.Record, error) {
	r.Kind = core.KindExpense
	return s.create(ctx, r)
}

// CreateOtherIncome stores r as a non-subscription income.
func (s *LedgerService) CreateOtherIncome(ctx context.Context, r core.Record) (core.Record, error) {
	r.Kind = core.KindOtherIncome
	return s.create(ctx, r)
}

// CreateSubscription stores r as a subscription. An empty status means unpaid.
func (s *LedgerService) CreateSubscription(ctx context.Context, r core.Record) (core.Record, error) {
	r.Kind = core.KindSubscription
	if r.Status == "" {
		r.Status = core.StatusUnpaid
	}
	return s.create(ctx, r)
}

func (s *LedgerService) create(ctx context.Context, r core.Record) (core.Record, error) {
	if err := s.checkRecord(ctx, r); err != nil {
		return core.Record{}, err
	}

	saved, err := s.store.InsertRecord(ctx, r)
	if err != nil {
		return core.Record{}, fmt.Errorf("save %s: %w", r.Kind, err)
	}

	slog.InfoContext(ctx, "Record created",
		"tenant_id", saved.TenantID,
		"kind", saved.Kind,
		"id", saved.ID,
		"amount", saved.Amount.Value)
	s.changed(ctx, amqp.ActionCreated, saved)
	return saved, nil
}

// UpdateRecord replaces the record with r's id, tenant and kind. An empty
// subscription status means unpaid. The change message carries both the old
// and the new date.
func (s *LedgerService) UpdateRecord(ctx context.Context, r core.Record) (core.Record, error) {
	if r.Kind == core.KindSubscription && r.Status == "" {
		r.Status = core.StatusUnpaid
	}
	if err := s.checkRecord(ctx, r); err != nil {
		return core.Record{}, err
	}

	before, after, err := s.store.UpdateRecord(ctx, r)
	if err != nil {
		return core.Record{}, fmt.Errorf("update %s: %w", r.Kind, err)
	}

	slog.InfoContext(ctx, "Record updated",
		"tenant_id", after.TenantID,
		"kind", after.Kind,
		"id", after.ID,
		"amount", after.Amount.Value)
	s.notify(after.TenantID)
	s.publish(ctx, amqp.NewRecordUpdatedMessage(before, after))
	return after, nil
}

// DeleteRecord removes one record of the given kind.
func (s *LedgerService) DeleteRecord(ctx context.Context, tenantID int64, kind core.RecordKind, id int64) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	removed, err := s.store.DeleteRecord(ctx, tenantID, kind, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	slog.InfoContext(ctx, "Record deleted", "tenant_id", tenantID, "kind", kind, "id", id)
	s.changed(ctx, amqp.ActionDeleted, removed)
	return nil
}

// CreateBank stores a bank account. Names are unique per tenant.
func (s *LedgerService) CreateBank(ctx context.Context, b core.BankAccount) (core.BankAccount, error) {
	if err := b.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	saved, err := s.store.InsertBank(ctx, b)
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("save bank: %w", err)
	}
	slog.InfoContext(ctx, "Bank account created", "tenant_id", saved.TenantID, "id", saved.ID, "name", saved.Name)
	s.notify(saved.TenantID)
	return saved, nil
}

// UpdateBank renames a bank or changes its account number.
func (s *LedgerService) UpdateBank(ctx context.Context, b core.BankAccount) (core.BankAccount, error) {
	if err := b.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	saved, err := s.store.UpdateBank(ctx, b)
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("update bank: %w", err)
	}
	slog.InfoContext(ctx, "Bank account updated", "tenant_id", saved.TenantID, "id", saved.ID, "name", saved.Name)
	s.notify(saved.TenantID)
	return saved, nil
}

// DeleteBank removes a bank account. Records routed through it stay in the
// ledger without a bank, so period totals do not change and no change
// message is published.
func (s *LedgerService) DeleteBank(ctx context.Context, tenantID, id int64) error {
	removed, detached, err := s.store.DeleteBank(ctx, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete bank: %w", err)
	}
	slog.InfoContext(ctx, "Bank account deleted",
		"tenant_id", tenantID,
		"id", id,
		"name", removed.Name,
		"detached_records", detached)
	s.notify(tenantID)
	return nil
}

// checkRecord validates r and makes sure its bank belongs to the tenant.
func (s *LedgerService) checkRecord(ctx context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.BankID != 0 {
		if _, err := s.store.GetBank(ctx, r.TenantID, r.BankID); err != nil {
			return fmt.Errorf("bank %d: %w", r.BankID, err)
		}
	}
	return nil
}

func (s *LedgerService) changed(ctx context.Context, action string, r core.Record) {
	s.notify(r.TenantID)
	s.publish(ctx, amqp.NewRecordChangedMessage(action, r))
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.RecordChangedMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping change message")
		return
	}
	if err := s.publisher.PublishRecordChanged(ctx, msg); err != nil {
		// the write already succeeded
		level := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish record change",
			"message_id", msg.MessageID,
			"tenant_id", msg.TenantID,
			"kind", msg.Kind,
			"id", msg.RecordID,
			"error", err)
	}
}

func (s *LedgerService) notify(tenantID int64) {
	for _, fn := range s.onChange {
		fn(tenantID)
	}
}
