// Package core provides money parsing and handling utilities.
//
// Amounts are whole currency units. There are no fractional parts and no
// currency conversion.
package core

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"hesabdar/internal/jalali"
)

type Money struct {
	Value int64
}

// NewMoney wraps a raw amount.
func NewMoney(v int64) Money {
	return Money{Value: v}
}

func (m Money) Validate() error {
	if m.Value < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Value: m.Value + o.Value} }
func (m Money) Sub(o Money) Money { return Money{Value: m.Value - o.Value} }
func (m Money) IsZero() bool      { return m.Value == 0 }

// String formats the amount with thousands separators, e.g. 1,250,000.
func (m Money) String() string {
	return humanize.Comma(m.Value)
}

// ParseAmount reads a non-negative whole amount. Persian and Arabic-Indic
// digits, surrounding spaces and thousands separators (",", "٬", "_") are
// accepted.
//
// Examples:
//
//	ParseAmount("1250000")   -> 1250000, nil
//	ParseAmount("1,250,000") -> 1250000, nil
//	ParseAmount("۱۲۵۰")      -> 1250, nil
//	ParseAmount("-5")        -> ErrNegativeAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(jalali.NormalizeDigits(s))
	s = strings.NewReplacer(",", "", "٬", "", "_", "").Replace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") {
		return Money{}, ErrNegativeAmount
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Money{}, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Value: v}, nil
}
