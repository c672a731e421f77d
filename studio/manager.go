/*
Package studio is the coordination facade over the student roster and the
cash ledger.

PURPOSE:
  Single entry point for every operation. Serializes access with one
  read/write mutex, runs domain mutations against the in-memory stores,
  and persists a full snapshot after each successful mutation.

KEY CONCEPTS:
  - Mutation protocol: validate -> exclusive lock -> mutate -> persist.
    If persistence fails, memory is rolled back to the pre-mutation
    checkpoint and the caller gets a StateError; the stores never drift
    ahead of the durable state.
  - Reads take a shared lock and return deep copies, so callers can hold
    results without racing later mutations.
  - The clock is injectable; reports and membership arithmetic anchor on
    it, keeping every code path reproducible in tests.

SEE ALSO:
  - studio/persistence.go: the Snapshot exchanged with backends
  - store/: the Persistence implementations
*/
package studio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/stats"
	"github.com/qmx/studio-engine/student"
)

// =============================================================================
// MANAGER
// =============================================================================

type Manager struct {
	mu       sync.RWMutex
	students *student.Store
	cash     *cash.Store
	persist  Persistence
	clock    func() time.Time
}

type Option func(*Manager)

// WithClock overrides the time source. Test hook.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// New builds a manager and loads prior state from the backend. A nil
// backend keeps everything in memory only.
func New(p Persistence, opts ...Option) (*Manager, error) {
	m := &Manager{
		students: student.NewStore(),
		cash:     cash.NewStore(),
		persist:  p,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if p != nil {
		snap, found, err := p.Load()
		if err != nil {
			return nil, &core.StateError{Op: "load", Cause: err}
		}
		if found {
			m.students.Restore(snap.Students, snap.NextStudentID)
			m.cash.Restore(snap.Cash, snap.NextCashID)
		}
	}
	return m, nil
}

// mutate runs fn under the write lock, persists on success, and restores
// the pre-mutation state when either fn or the backend fails.
func (m *Manager) mutate(op string, fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	students := m.students.Clone()
	ledger := m.cash.Clone()

	if err := fn(); err != nil {
		m.students, m.cash = students, ledger
		return err
	}
	if err := m.saveLocked(); err != nil {
		m.students, m.cash = students, ledger
		return &core.StateError{Op: op, Cause: err}
	}
	return nil
}

func (m *Manager) saveLocked() error {
	if m.persist == nil {
		return nil
	}
	return m.persist.Save(m.snapshotLocked())
}

func (m *Manager) snapshotLocked() Snapshot {
	studentRows, nextStudent := m.students.Snapshot()
	cashRows, nextCash := m.cash.Snapshot()
	return Snapshot{
		SavedAt:       m.clock(),
		Students:      studentRows,
		NextStudentID: nextStudent,
		Cash:          cashRows,
		NextCashID:    nextCash,
	}
}

// Snapshot exports the full current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Save forces a write to the backend without mutating anything. It
// takes the exclusive lock so backend writes never overlap.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveLocked(); err != nil {
		return &core.StateError{Op: "save", Cause: err}
	}
	return nil
}

// =============================================================================
// STUDENTS
// =============================================================================

func (m *Manager) CreateStudent(b *student.Builder) (student.Student, error) {
	var out student.Student
	err := m.mutate("create student", func() error {
		var err error
		out, err = m.students.Insert(b)
		return err
	})
	return out, err
}

func (m *Manager) GetStudent(id core.ID) (student.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.students.Get(id)
}

func (m *Manager) ListStudents() []student.Student {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.students.All()
}

func (m *Manager) SearchStudents(q student.Query) ([]student.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.students.Search(q)
}

func (m *Manager) UpdateStudent(id core.ID, u *student.Updater) (student.Student, error) {
	var out student.Student
	err := m.mutate("update student", func() error {
		var err error
		out, err = m.students.Update(id, u)
		return err
	})
	return out, err
}

// UpdateStudents applies one updater to many ids. Records that reject the
// update (missing id, validation failure) are skipped; the rest commit.
// Returns the number actually updated.
func (m *Manager) UpdateStudents(ids []core.ID, u *student.Updater) (int, error) {
	var updated int
	err := m.mutate("batch update students", func() error {
		for _, id := range ids {
			if _, err := m.students.Update(id, u); err == nil {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (m *Manager) DeleteStudent(id core.ID) error {
	return m.mutate("delete student", func() error {
		if !m.students.Delete(id) {
			return &core.NotFoundError{Kind: "student", ID: id}
		}
		return nil
	})
}

// =============================================================================
// SCORES
// =============================================================================

func (m *Manager) AddScore(id core.ID, score float64) (student.Student, error) {
	return m.UpdateStudent(id, student.NewUpdater().AddRing(score))
}

func (m *Manager) UpdateScore(id core.ID, index int, score float64) (student.Student, error) {
	return m.UpdateStudent(id, student.NewUpdater().UpdateRingAt(index, score))
}

func (m *Manager) RemoveScore(id core.ID, index int) (student.Student, error) {
	return m.UpdateStudent(id, student.NewUpdater().RemoveRingAt(index))
}

func (m *Manager) Scores(id core.ID) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.students.Get(id)
	if err != nil {
		return nil, err
	}
	return s.Rings, nil
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

// MembershipType names the preset membership windows.
type MembershipType string

const (
	MembershipMonthly MembershipType = "Month" // 30 days
	MembershipAnnual  MembershipType = "Year"  // 365 days
)

// ParseMembershipType converts a wire string. Unknown values are an error.
func ParseMembershipType(s string) (MembershipType, error) {
	switch MembershipType(s) {
	case MembershipMonthly, MembershipAnnual:
		return MembershipType(s), nil
	}
	return "", &core.ValidationError{Field: "membership_type", Reason: fmt.Sprintf("unrecognized value %q", s)}
}

func (t MembershipType) duration() (time.Duration, error) {
	switch t {
	case MembershipMonthly:
		return 30 * 24 * time.Hour, nil
	case MembershipAnnual:
		return 365 * 24 * time.Hour, nil
	}
	return 0, &core.ValidationError{Field: "membership_type", Reason: fmt.Sprintf("unrecognized value %q", t)}
}

func (m *Manager) SetMembership(id core.ID, start, end time.Time) (student.Student, error) {
	return m.UpdateStudent(id, student.NewUpdater().Membership(&start, &end))
}

func (m *Manager) ClearMembership(id core.ID) (student.Student, error) {
	return m.UpdateStudent(id, student.NewUpdater().Membership(nil, nil))
}

// SetMembershipByType grants a preset window starting now. When extend is
// true and the student's current membership has not yet ended, the new
// window keeps the existing start and pushes the end out by the preset
// duration instead.
func (m *Manager) SetMembershipByType(id core.ID, typ MembershipType, extend bool) (student.Student, error) {
	d, err := typ.duration()
	if err != nil {
		return student.Student{}, err
	}
	var out student.Student
	err = m.mutate("set membership", func() error {
		s, err := m.students.Get(id)
		if err != nil {
			return err
		}
		now := m.clock()
		start, end := now, now.Add(d)
		if extend && s.MembershipActive(now) {
			start, end = *s.MembershipStart, s.MembershipEnd.Add(d)
		}
		out, err = m.students.Update(id, student.NewUpdater().Membership(&start, &end))
		return err
	})
	return out, err
}

// ExpiringMembership is one row of the expiry report.
type ExpiringMembership struct {
	Student       student.Student `json:"student"`
	DaysRemaining int64           `json:"days_remaining"`
}

// ExpiringMemberships lists students whose active membership ends within
// the given number of days, soonest first.
func (m *Manager) ExpiringMemberships(withinDays int64) ([]ExpiringMembership, error) {
	if withinDays < 0 {
		return nil, &core.ValidationError{Field: "within_days", Reason: "must not be negative"}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock()
	var out []ExpiringMembership
	for _, s := range m.students.All() {
		if !s.MembershipActive(now) {
			continue
		}
		days, _ := s.MembershipDaysRemaining(now)
		if days <= withinDays {
			out = append(out, ExpiringMembership{Student: s, DaysRemaining: days})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DaysRemaining < out[j].DaysRemaining
	})
	return out, nil
}

// =============================================================================
// CASH
// =============================================================================

func (m *Manager) CreateCash(b *cash.Builder) (cash.Cash, error) {
	var out cash.Cash
	err := m.mutate("create cash", func() error {
		var err error
		out, err = m.cash.Insert(b, m.clock())
		return err
	})
	return out, err
}

func (m *Manager) GetCash(id core.ID) (cash.Cash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash.Get(id)
}

func (m *Manager) ListCash() []cash.Cash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash.All()
}

func (m *Manager) SearchCash(q cash.Query) ([]cash.Cash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash.Search(q)
}

func (m *Manager) UpdateCash(id core.ID, u *cash.Updater) (cash.Cash, error) {
	var out cash.Cash
	err := m.mutate("update cash", func() error {
		var err error
		out, err = m.cash.Update(id, u)
		return err
	})
	return out, err
}

func (m *Manager) DeleteCash(id core.ID) error {
	return m.mutate("delete cash", func() error {
		if !m.cash.Delete(id) {
			return &core.NotFoundError{Kind: "cash", ID: id}
		}
		return nil
	})
}

// CashByStudent lists the student's transactions in insertion order.
// The student must exist.
func (m *Manager) CashByStudent(studentID core.ID) ([]cash.Cash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, err := m.students.Get(studentID); err != nil {
		return nil, err
	}
	return m.cash.ByStudent(studentID), nil
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

func (m *Manager) UpdateInstallmentStatus(id core.ID, status cash.Status) (cash.Cash, error) {
	var out cash.Cash
	err := m.mutate("update installment status", func() error {
		var err error
		out, err = m.cash.UpdateStatus(id, status)
		return err
	})
	return out, err
}

func (m *Manager) GenerateNextInstallment(planID core.ID, due time.Time) (cash.Cash, error) {
	var out cash.Cash
	err := m.mutate("generate installment", func() error {
		var err error
		out, err = m.cash.GenerateNext(planID, due, m.clock())
		return err
	})
	return out, err
}

func (m *Manager) CancelInstallmentPlan(planID core.ID) (int, error) {
	var cancelled int
	err := m.mutate("cancel installment plan", func() error {
		var err error
		cancelled, err = m.cash.CancelPlan(planID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

func (m *Manager) InstallmentsByPlan(planID core.ID) ([]cash.Cash, error) {
	if !planID.IsValid() {
		return nil, &core.ValidationError{Field: "plan_id", Reason: "must not be zero"}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash.ByPlan(planID), nil
}

// MarkOverdueInstallments sweeps pending installments whose due date has
// passed and returns the number flipped to overdue.
func (m *Manager) MarkOverdueInstallments() (int, error) {
	var marked int
	err := m.mutate("mark overdue", func() error {
		marked = m.cash.MarkOverdue(m.clock())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// =============================================================================
// STATISTICS
// =============================================================================

func (m *Manager) DashboardStats() stats.Dashboard {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return stats.ComputeDashboard(m.students.All(), m.cash.All(), m.clock())
}

func (m *Manager) StudentStats(id core.ID) (stats.StudentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.students.Get(id)
	if err != nil {
		return stats.StudentStats{}, err
	}
	return stats.ComputeStudent(s, m.cash.All(), m.clock()), nil
}

func (m *Manager) FinancialStats(period core.TimePeriod) (stats.Financial, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return stats.ComputeFinancial(m.cash.All(), period, m.clock())
}
