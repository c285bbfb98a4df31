package amqp

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"hesabdar/internal/core"
	"hesabdar/internal/jalali"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RecordChangedMessage announces that a ledger record was written. Consumers
// reload whatever they need from storage; the message only says where to look.
type RecordChangedMessage struct {
	MessageID    string          `json:"message_id"`
	Action       string          `json:"action"`
	TenantID     int64           `json:"tenant_id"`
	Kind         core.RecordKind `json:"kind"`
	RecordID     int64           `json:"record_id"`
	Date         string          `json:"date,omitempty"`          // Gregorian YYYY-MM-DD of the semantic date
	PreviousDate string          `json:"previous_date,omitempty"` // date before an update
	Timestamp    time.Time       `json:"timestamp"`
}

// NewRecordChangedMessage builds a message for r with a fresh message id.
func NewRecordChangedMessage(action string, r core.Record) *RecordChangedMessage {
	msg := &RecordChangedMessage{
		MessageID: uuid.NewString(),
		Action:    action,
		TenantID:  r.TenantID,
		Kind:      r.Kind,
		RecordID:  r.ID,
		Timestamp: time.Now(),
	}
	if !r.Date.IsZero() {
		msg.Date = r.Date.Format(time.DateOnly)
	}
	return msg
}

// NewRecordUpdatedMessage builds an update message carrying both the old
// and the new date of the record.
func NewRecordUpdatedMessage(before, after core.Record) *RecordChangedMessage {
	msg := NewRecordChangedMessage(ActionUpdated, after)
	if !before.Date.IsZero() {
		msg.PreviousDate = before.Date.Format(time.DateOnly)
	}
	return msg
}

// JalaliYears returns the distinct Jalali years the change touches, in
// ascending order. Undated records touch none.
func (m *RecordChangedMessage) JalaliYears() ([]int, error) {
	var years []int
	for _, date := range []string{m.PreviousDate, m.Date} {
		if date == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("parse message date: %w", err)
		}
		d, err := jalali.FromGregorian(t)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(years, d.Year) {
			years = append(years, d.Year)
		}
	}
	slices.Sort(years)
	return years, nil
}

func (m *RecordChangedMessage) Validate() error {
	if m.TenantID <= 0 {
		return core.ErrInvalidTenant
	}
	if err := m.Kind.Validate(); err != nil {
		return err
	}
	switch m.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return fmt.Errorf("unknown action %q", m.Action)
	}
	return nil
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and validates a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record changed message: %w", err)
	}
	return &msg, nil
}
