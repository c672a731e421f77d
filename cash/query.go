package cash

import (
	"time"

	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// QUERY - Composable AND filters over the ledger
// =============================================================================

// Query maps optional filter dimensions to required values. Filters compose
// with logical AND; the zero Query matches every record. Results keep the
// store's insertion order.
type Query struct {
	studentID      *core.ID
	minAmount      *core.Money
	maxAmount      *core.Money
	hasInstallment *bool
	dateFrom       *time.Time
	dateTo         *time.Time
}

func NewQuery() Query { return Query{} }

func (q Query) StudentID(id core.ID) Query {
	q.studentID = &id
	return q
}

// AmountRange filters by inclusive signed amount range. The range is
// checked before any scan; min > max fails the whole search.
func (q Query) AmountRange(min, max core.Money) Query {
	q.minAmount, q.maxAmount = &min, &max
	return q
}

func (q Query) HasInstallment(present bool) Query {
	q.hasInstallment = &present
	return q
}

// DateRange filters by inclusive date range on the record's effective
// date: the installment due date when one is embedded, the entry time
// otherwise.
func (q Query) DateRange(from, to time.Time) Query {
	q.dateFrom, q.dateTo = &from, &to
	return q
}

// validate fails fast on inverted ranges, before scanning.
func (q Query) validate() error {
	if q.minAmount != nil {
		if err := core.ValidateAmountRange(*q.minAmount, *q.maxAmount); err != nil {
			return err
		}
	}
	if q.dateFrom != nil {
		return core.ValidateDateRange(*q.dateFrom, *q.dateTo)
	}
	return nil
}

func (q Query) matches(c Cash) bool {
	if q.studentID != nil && (c.StudentID == nil || *c.StudentID != *q.studentID) {
		return false
	}
	if q.minAmount != nil && (c.Amount.LessThan(*q.minAmount) || c.Amount.GreaterThan(*q.maxAmount)) {
		return false
	}
	if q.hasInstallment != nil && c.HasInstallment() != *q.hasInstallment {
		return false
	}
	if q.dateFrom != nil && !core.WithinRange(c.EffectiveDate(), *q.dateFrom, *q.dateTo) {
		return false
	}
	return true
}
