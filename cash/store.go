/*
store.go - Cash store and the installment plan operations

PURPOSE:
  The insertion-ordered transaction store plus every operation that scans
  across a payment plan: generate-next, cancel, list-by-plan, status
  updates, and the overdue sweep.

PLAN SCANS:
  Plan operations scan the whole store by design; the manager facade holds
  the write lock for their full duration so a scan never observes a
  half-applied concurrent write.

LATEST-INSTALLMENT ORDER:
  "Latest" is the record with the highest CurrentInstallment, ties broken
  by highest record id. This is the authoritative tie-break for plans that
  contain duplicate indices.
*/
package cash

import (
	"fmt"
	"time"

	"github.com/qmx/studio-engine/core"
)

// Store owns all cash records. It is not safe for concurrent use on its
// own; the manager facade serializes access and handles persistence.
type Store struct {
	table *core.Table[Cash]
}

func NewStore() *Store {
	return &Store{table: core.NewTable[Cash]("cash record", func(c Cash) core.ID { return c.ID })}
}

// Insert validates the builder and creates the record. now becomes the
// record's entry time.
func (st *Store) Insert(b *Builder, now time.Time) (Cash, error) {
	if err := b.validate(); err != nil {
		return Cash{}, err
	}
	id := st.table.Insert(func(id core.ID) Cash {
		c := Cash{
			ID:        id,
			Amount:    b.amount,
			Note:      b.note,
			CreatedAt: now,
		}
		if b.studentID != nil {
			v := *b.studentID
			c.StudentID = &v
		}
		if b.installment != nil {
			v := *b.installment
			c.Installment = &v
		}
		return c
	})
	c, _ := st.table.Get(id)
	return c, nil
}

// Get returns a copy of the record, or NotFoundError.
func (st *Store) Get(id core.ID) (Cash, error) {
	c, ok := st.table.Get(id)
	if !ok {
		return Cash{}, &core.NotFoundError{Kind: "cash record", ID: id}
	}
	return c, nil
}

// Update applies a partial update and returns the fresh record.
func (st *Store) Update(id core.ID, u *Updater) (Cash, error) {
	if err := st.table.Update(id, u.apply); err != nil {
		return Cash{}, err
	}
	c, _ := st.table.Get(id)
	return c, nil
}

// Delete removes the record. Returns true iff it existed.
func (st *Store) Delete(id core.ID) bool { return st.table.Delete(id) }

// All returns every record in insertion order.
func (st *Store) All() []Cash { return st.table.All() }

// Len returns the ledger size.
func (st *Store) Len() int { return st.table.Len() }

// Search returns records matching the query in insertion order.
func (st *Store) Search(q Query) ([]Cash, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	var out []Cash
	for _, c := range st.table.All() {
		if q.matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ByStudent returns the student's records in insertion order.
func (st *Store) ByStudent(id core.ID) []Cash {
	var out []Cash
	for _, c := range st.table.All() {
		if c.StudentID != nil && *c.StudentID == id {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// INSTALLMENT PLAN OPERATIONS
// =============================================================================

// ByPlan returns every record whose installment matches the plan id, in
// insertion order.
func (st *Store) ByPlan(planID core.ID) []Cash {
	var out []Cash
	for _, c := range st.table.All() {
		if c.Installment != nil && c.Installment.PlanID == planID {
			out = append(out, c)
		}
	}
	return out
}

// UpdateStatus replaces the installment's status field only. Fails with
// NotFound for a missing record and with a conflict when the record
// carries no installment. Transition legality is not enforced here;
// manual overrides to any state are permitted.
func (st *Store) UpdateStatus(id core.ID, status Status) (Cash, error) {
	if !status.Valid() {
		return Cash{}, &core.ValidationError{Field: "status", Reason: "unrecognized status"}
	}
	err := st.table.Update(id, func(c *Cash) error {
		if c.Installment == nil {
			return &core.ConflictError{Reason: fmt.Sprintf("cash record %d has no installment", id)}
		}
		c.Installment.Status = status
		return nil
	})
	if err != nil {
		return Cash{}, err
	}
	c, _ := st.table.Get(id)
	return c, nil
}

// GenerateNext creates the successor installment of a plan.
//
// The plan's records are scanned in insertion order. The latest record is
// the one with the highest CurrentInstallment (ties broken by highest id);
// a completed plan is a conflict. The new record's amount is the truncated
// even split of the plan total, it inherits plan id, total amount, total
// count and frequency from the latest record, and it is associated with
// the student of the FIRST matching record in scan order.
func (st *Store) GenerateNext(planID core.ID, due time.Time, now time.Time) (Cash, error) {
	matches := st.ByPlan(planID)
	if len(matches) == 0 {
		return Cash{}, &core.NotFoundError{Kind: "installment plan", ID: planID}
	}

	latest := matches[0]
	for _, c := range matches[1:] {
		li, ci := latest.Installment, c.Installment
		if ci.CurrentInstallment > li.CurrentInstallment ||
			(ci.CurrentInstallment == li.CurrentInstallment && c.ID > latest.ID) {
			latest = c
		}
	}

	inst := latest.Installment
	if inst.CurrentInstallment >= inst.TotalInstallments {
		return Cash{}, &core.ConflictError{
			Reason: fmt.Sprintf("plan %d is complete (%d of %d installments)", planID, inst.CurrentInstallment, inst.TotalInstallments),
		}
	}

	next := Installment{
		PlanID:             inst.PlanID,
		TotalAmount:        inst.TotalAmount,
		TotalInstallments:  inst.TotalInstallments,
		CurrentInstallment: inst.CurrentInstallment + 1,
		Frequency:          inst.Frequency,
		DueDate:            due,
		Status:             StatusPending,
	}

	b := NewBuilder(inst.TotalAmount.SplitEven(inst.TotalInstallments)).
		Installment(next).
		Note(fmt.Sprintf("installment %d of %d", next.CurrentInstallment, next.TotalInstallments))
	if matches[0].StudentID != nil {
		b = b.StudentID(*matches[0].StudentID)
	}
	return st.Insert(b, now)
}

// CancelPlan sets status Cancelled on every non-cancelled record of the
// plan and returns how many changed. Already-cancelled records are left
// untouched and not recounted, which makes the operation idempotent; a
// zero count is reported as a conflict so callers can distinguish
// "nothing to cancel" from a real cancellation.
func (st *Store) CancelPlan(planID core.ID) (int, error) {
	changed := 0
	for _, c := range st.table.All() {
		if c.Installment == nil || c.Installment.PlanID != planID || c.Installment.Status == StatusCancelled {
			continue
		}
		_ = st.table.Update(c.ID, func(c *Cash) error {
			c.Installment.Status = StatusCancelled
			return nil
		})
		changed++
	}
	if changed == 0 {
		return 0, &core.ConflictError{Reason: fmt.Sprintf("plan %d has no cancellable installments", planID)}
	}
	return changed, nil
}

// MarkOverdue flips Pending installments whose due date has passed to
// Overdue and returns how many changed. Paid and Cancelled records are
// never touched.
func (st *Store) MarkOverdue(now time.Time) int {
	changed := 0
	for _, c := range st.table.All() {
		if c.Installment == nil || c.Installment.Status != StatusPending || !c.Installment.DueDate.Before(now) {
			continue
		}
		_ = st.table.Update(c.ID, func(c *Cash) error {
			c.Installment.Status = StatusOverdue
			return nil
		})
		changed++
	}
	return changed
}

// =============================================================================
// SNAPSHOT SUPPORT
// =============================================================================

// Clone returns an independent deep copy, used for rollback checkpoints.
func (st *Store) Clone() *Store { return &Store{table: st.table.Clone()} }

// Snapshot exports rows (insertion order) and the id counter.
func (st *Store) Snapshot() ([]Cash, core.ID) {
	return st.table.All(), st.table.NextID()
}

// Restore replaces the store contents from a snapshot.
func (st *Store) Restore(rows []Cash, next core.ID) {
	st.table.Restore(rows, next)
}
