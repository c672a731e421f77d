package studio_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/store/memory"
	"github.com/qmx/studio-engine/student"
	"github.com/qmx/studio-engine/studio"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var mgrNow = time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC)

func money(s string) core.Money {
	return core.Money{Value: decimal.RequireFromString(s)}
}

func newTestManager(t *testing.T) *studio.Manager {
	t.Helper()
	mgr, err := studio.New(memory.New(), studio.WithClock(func() time.Time { return mgrNow }))
	require.NoError(t, err)
	return mgr
}

// failAfter is a Persistence stub that starts failing after n saves.
type failAfter struct {
	remaining int
}

func (f *failAfter) Load() (studio.Snapshot, bool, error) { return studio.Snapshot{}, false, nil }

func (f *failAfter) Save(studio.Snapshot) error {
	if f.remaining <= 0 {
		return errors.New("disk full")
	}
	f.remaining--
	return nil
}

// =============================================================================
// MUTATION PROTOCOL
// =============================================================================

func TestManager_PersistFailureRollsBack(t *testing.T) {
	// GIVEN: A backend that accepts one save then fails
	// WHEN: The second create fails to persist
	// THEN: The caller sees a StateError and memory still matches the
	//       last persisted state, id counter included

	mgr, err := studio.New(&failAfter{remaining: 1})
	require.NoError(t, err)

	first, err := mgr.CreateStudent(student.NewBuilder("Alice", 15))
	require.NoError(t, err)

	_, err = mgr.CreateStudent(student.NewBuilder("Bob", 30))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrState)

	students := mgr.ListStudents()
	require.Len(t, students, 1)
	assert.Equal(t, first.ID, students[0].ID)

	// The rolled-back insert must not have burned an id
	snap := mgr.Snapshot()
	assert.Equal(t, core.ID(2), snap.NextStudentID)
}

func TestManager_CreateCash_DanglingStudentRefAccepted(t *testing.T) {
	// GIVEN: Alice existed but has been deleted
	// WHEN: Recording a transaction still assigned to her id
	// THEN: The record is accepted; student links are not referentially
	//       enforced, only the zero id is invalid

	mgr := newTestManager(t)

	alice, err := mgr.CreateStudent(student.NewBuilder("Alice", 15))
	require.NoError(t, err)
	require.NoError(t, mgr.DeleteStudent(alice.ID))

	c, err := mgr.CreateCash(cash.NewBuilder(money("100")).StudentID(alice.ID))
	require.NoError(t, err)
	require.NotNil(t, c.StudentID)
	assert.Equal(t, alice.ID, *c.StudentID)

	rows := mgr.ListCash()
	require.Len(t, rows, 1)
	assert.Equal(t, c.ID, rows[0].ID)

	// Retargeting an update at a never-seen id is legal too
	updated, err := mgr.UpdateCash(c.ID, cash.NewUpdater().StudentID(99))
	require.NoError(t, err)
	assert.Equal(t, core.ID(99), *updated.StudentID)

	// The zero id stays rejected
	_, err = mgr.CreateCash(cash.NewBuilder(money("50")).StudentID(0))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestManager_DeleteThenGet_NotFound(t *testing.T) {
	mgr := newTestManager(t)
	s, err := mgr.CreateStudent(student.NewBuilder("Alice", 15))
	require.NoError(t, err)

	require.NoError(t, mgr.DeleteStudent(s.ID))
	_, err = mgr.GetStudent(s.ID)
	assert.True(t, core.IsNotFound(err))

	err = mgr.DeleteStudent(s.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestManager_ConcurrentCreates_UniqueIDs(t *testing.T) {
	// GIVEN: 32 goroutines creating students and transactions at once
	// THEN: Every assigned id is unique and all records survive

	mgr := newTestManager(t)

	const n = 32
	var wg sync.WaitGroup
	studentIDs := make([]core.ID, n)
	cashIDs := make([]core.ID, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := mgr.CreateStudent(student.NewBuilder("Student", 20))
			assert.NoError(t, err)
			studentIDs[i] = s.ID
			c, err := mgr.CreateCash(cash.NewBuilder(money("10")))
			assert.NoError(t, err)
			cashIDs[i] = c.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[core.ID]bool)
	for _, id := range studentIDs {
		assert.False(t, seen[id], "duplicate student id %d", id)
		seen[id] = true
	}
	seen = make(map[core.ID]bool)
	for _, id := range cashIDs {
		assert.False(t, seen[id], "duplicate cash id %d", id)
		seen[id] = true
	}
	assert.Len(t, mgr.ListStudents(), n)
	assert.Len(t, mgr.ListCash(), n)
}

// serialSaves is a Persistence stub that fails the test when two Save
// calls overlap.
type serialSaves struct {
	t      *testing.T
	active atomic.Int32
}

func (s *serialSaves) Load() (studio.Snapshot, bool, error) { return studio.Snapshot{}, false, nil }

func (s *serialSaves) Save(studio.Snapshot) error {
	if s.active.Add(1) != 1 {
		s.t.Error("overlapping backend saves")
	}
	time.Sleep(time.Millisecond)
	s.active.Add(-1)
	return nil
}

func TestManager_ConcurrentSaves_NeverOverlap(t *testing.T) {
	// GIVEN: Explicit saves racing each other and racing mutations
	// THEN: The backend only ever sees one Save call at a time

	mgr, err := studio.New(&serialSaves{t: t})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, mgr.Save())
			_, err := mgr.CreateStudent(student.NewBuilder("Student", 20))
			assert.NoError(t, err)
			assert.NoError(t, mgr.Save())
		}()
	}
	wg.Wait()
}

// =============================================================================
// SNAPSHOT ROUND-TRIP
// =============================================================================

func TestManager_StateSurvivesRestart(t *testing.T) {
	// GIVEN: A manager that saved students and cash to a shared backend
	// WHEN: Building a fresh manager on the same backend
	// THEN: All rows come back and id numbering continues where it stopped

	backend := memory.New()
	clock := studio.WithClock(func() time.Time { return mgrNow })

	mgr, err := studio.New(backend, clock)
	require.NoError(t, err)

	alice, err := mgr.CreateStudent(student.NewBuilder("Alice", 15))
	require.NoError(t, err)
	_, err = mgr.AddScore(alice.ID, 9.5)
	require.NoError(t, err)
	_, err = mgr.CreateCash(cash.NewBuilder(money("250")).StudentID(alice.ID))
	require.NoError(t, err)

	reloaded, err := studio.New(backend, clock)
	require.NoError(t, err)

	got, err := reloaded.GetStudent(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, []float64{9.5}, got.Rings)
	require.Len(t, reloaded.ListCash(), 1)

	// Numbering continues, no collisions with restored rows
	bob, err := reloaded.CreateStudent(student.NewBuilder("Bob", 30))
	require.NoError(t, err)
	assert.Equal(t, alice.ID+1, bob.ID)
}

// =============================================================================
// MEMBERSHIP PRESETS
// =============================================================================

func TestSetMembershipByType_MonthAndYear(t *testing.T) {
	mgr := newTestManager(t)
	s, err := mgr.CreateStudent(student.NewBuilder("Alice", 15))
	require.NoError(t, err)

	got, err := mgr.SetMembershipByType(s.ID, studio.MembershipMonthly, false)
	require.NoError(t, err)
	require.NotNil(t, got.MembershipEnd)
	assert.Equal(t, mgrNow, *got.MembershipStart)
	assert.Equal(t, mgrNow.AddDate(0, 0, 30), *got.MembershipEnd)

	got, err = mgr.SetMembershipByType(s.ID, studio.MembershipAnnual, false)
	require.NoError(t, err)
	assert.Equal(t, mgrNow.AddDate(0, 0, 365), *got.MembershipEnd)
}

func TestSetMembershipByType_ExtendPushesEndOut(t *testing.T) {
	// GIVEN: An active membership
	// WHEN: Granting another month with extend
	// THEN: The start is kept and the end moves out by 30 days

	mgr := newTestManager(t)
	s, err := mgr.CreateStudent(student.NewBuilder("Alice", 15))
	require.NoError(t, err)

	first, err := mgr.SetMembershipByType(s.ID, studio.MembershipMonthly, false)
	require.NoError(t, err)

	got, err := mgr.SetMembershipByType(s.ID, studio.MembershipMonthly, true)
	require.NoError(t, err)
	assert.Equal(t, *first.MembershipStart, *got.MembershipStart)
	assert.Equal(t, first.MembershipEnd.AddDate(0, 0, 30), *got.MembershipEnd)
}

func TestExpiringMemberships_SoonestFirst(t *testing.T) {
	mgr := newTestManager(t)

	mk := func(name string, daysLeft int) core.ID {
		s, err := mgr.CreateStudent(student.NewBuilder(name, 20))
		require.NoError(t, err)
		start := mgrNow.AddDate(0, 0, -5)
		end := mgrNow.AddDate(0, 0, daysLeft)
		_, err = mgr.SetMembership(s.ID, start, end)
		require.NoError(t, err)
		return s.ID
	}
	mk("Late", 20)
	soon := mk("Soon", 2)
	mid := mk("Mid", 6)

	rows, err := mgr.ExpiringMemberships(7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, soon, rows[0].Student.ID)
	assert.Equal(t, mid, rows[1].Student.ID)

	_, err = mgr.ExpiringMemberships(-1)
	assert.ErrorIs(t, err, core.ErrValidation)
}

// =============================================================================
// BATCH UPDATE
// =============================================================================

func TestUpdateStudents_SkipsFailuresAndCounts(t *testing.T) {
	// GIVEN: Two real students and one missing id
	// WHEN: Batch-updating the subject
	// THEN: Two records change and the count says so

	mgr := newTestManager(t)
	a, err := mgr.CreateStudent(student.NewBuilder("Alice", 15))
	require.NoError(t, err)
	b, err := mgr.CreateStudent(student.NewBuilder("Bob", 30))
	require.NoError(t, err)

	count, err := mgr.UpdateStudents(
		[]core.ID{a.ID, 999, b.ID},
		student.NewUpdater().Subject(student.SubjectArchery))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, _ := mgr.GetStudent(a.ID)
	assert.Equal(t, student.SubjectArchery, got.Subject)
}

// =============================================================================
// END-TO-END LEDGER FLOW
// =============================================================================

func TestManager_InstallmentLifecycle(t *testing.T) {
	// GIVEN: Alice with a 1200/12 monthly plan
	// WHEN: Generating, paying, and finally cancelling
	// THEN: Each step is visible through the plan listing and stats

	mgr := newTestManager(t)
	alice, err := mgr.CreateStudent(student.NewBuilder("Alice", 15))
	require.NoError(t, err)

	inst := cash.NewInstallment(1, money("1200"), 12, cash.Monthly(), mgrNow.AddDate(0, 1, 0))
	first, err := mgr.CreateCash(cash.NewBuilder(money("100")).
		StudentID(alice.ID).
		Installment(inst))
	require.NoError(t, err)

	second, err := mgr.GenerateNextInstallment(1, mgrNow.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Installment.CurrentInstallment)

	_, err = mgr.UpdateInstallmentStatus(first.ID, cash.StatusPaid)
	require.NoError(t, err)

	plan, err := mgr.InstallmentsByPlan(1)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	byStudent, err := mgr.CashByStudent(alice.ID)
	require.NoError(t, err)
	assert.Len(t, byStudent, 2)

	count, err := mgr.CancelInstallmentPlan(1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	dash := mgr.DashboardStats()
	assert.Equal(t, 1, dash.TotalStudents)
	assert.True(t, dash.TotalRevenue.Equal(money("200")))
}
