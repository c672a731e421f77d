/*
Package stats derives dashboard, per-student, and per-period metrics by
scanning the stores.

PURPOSE:
  Pure aggregation - no state, no I/O. Every function takes snapshots of
  store contents plus an explicit anchor time, so reports are reproducible
  in tests and consistent under the manager's lock.

INVARIANT:
  TotalRevenue - TotalExpense always equals the signed sum of all
  transaction amounts, because revenue sums the positive amounts and
  expense sums the absolute values of the negative ones.
*/
package stats

import (
	"time"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/student"
)

// =============================================================================
// DASHBOARD
// =============================================================================

type Dashboard struct {
	TotalStudents int        `json:"total_students"`
	TotalRevenue  core.Money `json:"total_revenue"`
	TotalExpense  core.Money `json:"total_expense"` // absolute value
	AverageScore  float64    `json:"average_score"` // 0.0 when no scores
	MaxScore      float64    `json:"max_score"`     // 0.0 when no scores
	ActiveCourses int        `json:"active_courses"`
}

// ComputeDashboard scans both stores. A course counts as active when the
// student has a currently valid membership or a nonzero remaining-lesson
// counter.
func ComputeDashboard(students []student.Student, records []cash.Cash, now time.Time) Dashboard {
	d := Dashboard{TotalStudents: len(students)}

	var scoreSum float64
	var scoreCount int
	for _, s := range students {
		for _, r := range s.Rings {
			scoreSum += r
			scoreCount++
			if r > d.MaxScore {
				d.MaxScore = r
			}
		}
		if s.MembershipActive(now) || (s.LessonsLeft != nil && *s.LessonsLeft > 0) {
			d.ActiveCourses++
		}
	}
	if scoreCount > 0 {
		d.AverageScore = scoreSum / float64(scoreCount)
	}

	for _, c := range records {
		if c.Amount.IsPositive() {
			d.TotalRevenue = d.TotalRevenue.Add(c.Amount)
		} else {
			d.TotalExpense = d.TotalExpense.Add(c.Amount.Abs())
		}
	}
	return d
}

// =============================================================================
// PER-STUDENT
// =============================================================================

// MembershipStatus is the human-facing label on per-student stats.
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "Active"
	MembershipExpired MembershipStatus = "Expired"
	MembershipNone    MembershipStatus = "None"
)

type StudentStats struct {
	TotalPayments    core.Money       `json:"total_payments"` // signed sum
	PaymentCount     int              `json:"payment_count"`
	AverageScore     *float64         `json:"average_score,omitempty"` // absent when no scores
	ScoreCount       int              `json:"score_count"`
	MembershipStatus MembershipStatus `json:"membership_status"`
}

// ComputeStudent aggregates one student's transactions and scores.
// records may be the whole ledger; only rows owned by the student count.
func ComputeStudent(s student.Student, records []cash.Cash, now time.Time) StudentStats {
	st := StudentStats{ScoreCount: len(s.Rings), MembershipStatus: MembershipNone}

	if s.HasMembership() {
		st.MembershipStatus = MembershipExpired
		if s.MembershipActive(now) {
			st.MembershipStatus = MembershipActive
		}
	}
	if avg, ok := s.AverageScore(); ok {
		st.AverageScore = &avg
	}
	for _, c := range records {
		if c.StudentID == nil || *c.StudentID != s.ID {
			continue
		}
		st.TotalPayments = st.TotalPayments.Add(c.Amount)
		st.PaymentCount++
	}
	return st
}

// =============================================================================
// PER-PERIOD FINANCIAL
// =============================================================================

type Financial struct {
	Period           core.TimePeriod `json:"period"`
	TotalIncome      core.Money      `json:"total_income"`
	TotalExpense     core.Money      `json:"total_expense"` // absolute value
	Net              core.Money      `json:"net"`
	TransactionCount int             `json:"transaction_count"`
	InstallmentCount int             `json:"installment_count"`
}

// ComputeFinancial buckets transactions whose entry time falls inside the
// period's [start, now] window.
func ComputeFinancial(records []cash.Cash, period core.TimePeriod, now time.Time) (Financial, error) {
	start, end, err := period.Bounds(now)
	if err != nil {
		return Financial{}, err
	}

	f := Financial{Period: period}
	for _, c := range records {
		if !core.WithinRange(c.CreatedAt, start, end) {
			continue
		}
		f.TransactionCount++
		if c.HasInstallment() {
			f.InstallmentCount++
		}
		if c.Amount.IsPositive() {
			f.TotalIncome = f.TotalIncome.Add(c.Amount)
		} else {
			f.TotalExpense = f.TotalExpense.Add(c.Amount.Abs())
		}
	}
	f.Net = f.TotalIncome.Sub(f.TotalExpense)
	return f, nil
}
