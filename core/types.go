/*
Package core provides the shared kernel of the studio ledger engine.

PURPOSE:
  This package contains the domain-agnostic building blocks used by every
  store and subsystem: typed identifiers, exact money arithmetic, reporting
  periods, error kinds, input validation, and the insertion-ordered Table
  that backs the entity stores.

KEY CONCEPTS IN THIS FILE (types.go):
  - ID: monotonically assigned record identifier (zero is never valid)
  - Money: a signed amount with exact decimal arithmetic

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal to avoid floating-point errors
  2. Truncation: splitting a plan amount across installments truncates,
     it never rounds - the remainder is deliberately dropped
  3. No I/O: nothing below the manager facade touches disk or network

SEE ALSO:
  - table.go: insertion-ordered entity storage
  - errors.go: error kinds and classification helpers
  - validate.go: input validation predicates
*/
package core

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ID identifies a record within one store. IDs are assigned monotonically
// starting at 1 and are never reused; 0 means "unset".
type ID uint64

// IsValid reports whether the ID could have been issued by a store.
func (id ID) IsValid() bool { return id != 0 }

// =============================================================================
// MONEY - Signed amount (positive = income, negative = expense)
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Value: d}
}

func (m Money) Add(o Money) Money      { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money      { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money             { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money             { return Money{Value: m.Value.Abs()} }
func (m Money) IsZero() bool           { return m.Value.IsZero() }
func (m Money) IsPositive() bool       { return m.Value.IsPositive() }
func (m Money) IsNegative() bool       { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool     { return m.Value.Equal(o.Value) }
func (m Money) LessThan(o Money) bool  { return m.Value.LessThan(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }

// SplitEven returns the per-installment share of m across n installments.
// The division truncates toward zero; the remainder is dropped, matching
// the ledger's documented installment arithmetic. n must be positive.
func (m Money) SplitEven(n int) Money {
	q, _ := m.Value.QuoRem(decimal.NewFromInt(int64(n)), 0)
	return Money{Value: q}
}

func (m Money) String() string { return m.Value.String() }

// MarshalJSON encodes the amount as a plain decimal number string.
func (m Money) MarshalJSON() ([]byte, error) { return m.Value.MarshalJSON() }

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error { return m.Value.UnmarshalJSON(b) }
