/*
Package cash owns the transaction ledger: signed cash records, the embedded
installment payloads that group records into payment plans, and the
builder/updater/query protocol around the store.

PURPOSE:
  A Cash record is one signed movement of money (positive = income,
  negative = expense), optionally owned by a student and optionally part of
  a multi-installment payment plan.

INSTALLMENT MODEL:
  Installments are embedded in cash records, not a separate store. All
  records of one plan share a nonzero plan id. A plan is complete when the
  latest generated installment's index equals the plan's total. The "latest"
  record is chosen by the strict order (CurrentInstallment, then record id),
  so corrupted duplicates still resolve deterministically.

AMOUNT ARITHMETIC:
  The per-installment amount is TotalAmount / TotalInstallments with
  truncating division. The remainder is dropped on purpose; changing this
  to rounding is a behavior change, not a bug fix.

SEE ALSO:
  - store.go: plan operations (generate-next, cancel, list-by-plan)
  - student: the roster side of the ledger
*/
package cash

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// INSTALLMENT STATUS
// =============================================================================

// Status is the lifecycle state of one installment. Automated transitions
// are pending -> paid, pending -> overdue, and pending|overdue -> cancelled;
// UpdateStatus deliberately permits any manual override on top of that.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusOverdue   Status = "Overdue"
	StatusCancelled Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// =============================================================================
// PAYMENT FREQUENCY
// =============================================================================

type FrequencyUnit string

const (
	FrequencyWeekly    FrequencyUnit = "Weekly"
	FrequencyMonthly   FrequencyUnit = "Monthly"
	FrequencyQuarterly FrequencyUnit = "Quarterly"
	FrequencyCustom    FrequencyUnit = "Custom" // every Days days, 1..365
)

// Frequency is how often installments of a plan come due.
type Frequency struct {
	Unit FrequencyUnit
	Days int // only meaningful for FrequencyCustom
}

func Weekly() Frequency    { return Frequency{Unit: FrequencyWeekly} }
func Monthly() Frequency   { return Frequency{Unit: FrequencyMonthly} }
func Quarterly() Frequency { return Frequency{Unit: FrequencyQuarterly} }

func Custom(days int) Frequency { return Frequency{Unit: FrequencyCustom, Days: days} }

func (f Frequency) validate() error {
	switch f.Unit {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return nil
	case FrequencyCustom:
		return core.ValidateCustomFrequencyDays(f.Days)
	}
	return &core.ValidationError{Field: "frequency", Reason: "unrecognized unit"}
}

// String renders the wire form: "Weekly", "Monthly", "Quarterly", "Custom15".
func (f Frequency) String() string {
	if f.Unit == FrequencyCustom {
		return fmt.Sprintf("Custom%d", f.Days)
	}
	return string(f.Unit)
}

// ParseFrequency is the explicit, fallible inverse of String. Unrecognized
// values are an error, never a silent default.
func ParseFrequency(s string) (Frequency, error) {
	switch FrequencyUnit(s) {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return Frequency{Unit: FrequencyUnit(s)}, nil
	}
	if rest, ok := strings.CutPrefix(s, string(FrequencyCustom)); ok {
		days, err := strconv.Atoi(rest)
		if err != nil {
			return Frequency{}, &core.ValidationError{Field: "frequency", Reason: "custom form is Custom<days>"}
		}
		if err := core.ValidateCustomFrequencyDays(days); err != nil {
			return Frequency{}, err
		}
		return Custom(days), nil
	}
	return Frequency{}, &core.ValidationError{Field: "frequency", Reason: fmt.Sprintf("unrecognized value %q", s)}
}

func (f Frequency) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(f.String())), nil
}

func (f *Frequency) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	parsed, err := ParseFrequency(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// =============================================================================
// INSTALLMENT - Embedded plan membership of one cash record
// =============================================================================

type Installment struct {
	PlanID             core.ID    `json:"plan_id"`
	TotalAmount        core.Money `json:"total_amount"`
	TotalInstallments  int        `json:"total_installments"`
	CurrentInstallment int        `json:"current_installment"` // 1-based
	Frequency          Frequency  `json:"frequency"`
	DueDate            time.Time  `json:"due_date"`
	Status             Status     `json:"status"`
}

// NewInstallment returns the first installment of a plan: status pending,
// current index 1. Callers override CurrentInstallment when recreating
// mid-plan state.
func NewInstallment(planID core.ID, total core.Money, count int, freq Frequency, due time.Time) Installment {
	return Installment{
		PlanID:             planID,
		TotalAmount:        total,
		TotalInstallments:  count,
		CurrentInstallment: 1,
		Frequency:          freq,
		DueDate:            due,
		Status:             StatusPending,
	}
}

func (i Installment) validate() error {
	if err := core.ValidateID("plan id", i.PlanID); err != nil {
		return err
	}
	if err := core.ValidateAmount(i.TotalAmount); err != nil {
		return &core.ValidationError{Field: "total amount", Reason: "exceeds the amount limit"}
	}
	if err := core.ValidateInstallmentCount(i.TotalInstallments); err != nil {
		return err
	}
	if i.CurrentInstallment < 1 || i.CurrentInstallment > i.TotalInstallments {
		return &core.ValidationError{
			Field:  "current installment",
			Reason: fmt.Sprintf("must be between 1 and %d", i.TotalInstallments),
		}
	}
	if err := i.Frequency.validate(); err != nil {
		return err
	}
	if i.DueDate.IsZero() {
		return &core.ValidationError{Field: "due date", Reason: "must be set"}
	}
	if !i.Status.Valid() {
		return &core.ValidationError{Field: "status", Reason: "unrecognized status"}
	}
	return nil
}

// =============================================================================
// CASH ENTITY
// =============================================================================

type Cash struct {
	ID        core.ID      `json:"id"`
	StudentID *core.ID     `json:"student_id,omitempty"` // by value, never enforced
	Amount    core.Money   `json:"amount"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Installment *Installment `json:"installment,omitempty"`
}

// Clone returns a deep copy. Required by core.Table.
func (c Cash) Clone() Cash {
	cp := c
	if c.StudentID != nil {
		v := *c.StudentID
		cp.StudentID = &v
	}
	if c.Installment != nil {
		v := *c.Installment
		cp.Installment = &v
	}
	return cp
}

// HasInstallment reports whether the record belongs to a payment plan.
func (c Cash) HasInstallment() bool { return c.Installment != nil }

// EffectiveDate is the time dimension used by date-range filters: the due
// date for installment records, the entry time otherwise.
func (c Cash) EffectiveDate() time.Time {
	if c.Installment != nil {
		return c.Installment.DueDate
	}
	return c.CreatedAt
}
