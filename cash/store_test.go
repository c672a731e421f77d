package cash_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func money(s string) core.Money {
	return core.Money{Value: decimal.RequireFromString(s)}
}

func due(month time.Month) time.Time {
	return time.Date(2026, month, 15, 0, 0, 0, 0, time.UTC)
}

// newPlan inserts the first installment of a plan: total/count split,
// pending, owned by student 7.
func newPlan(t *testing.T, st *cash.Store, planID core.ID, total string, count int) cash.Cash {
	t.Helper()
	totalAmount := money(total)
	inst := cash.NewInstallment(planID, totalAmount, count, cash.Monthly(), due(time.March))
	c, err := st.Insert(cash.NewBuilder(totalAmount.SplitEven(count)).
		StudentID(7).
		Installment(inst), testNow)
	require.NoError(t, err)
	return c
}

// =============================================================================
// BASIC LEDGER
// =============================================================================

func TestStore_InsertAndSearch(t *testing.T) {
	st := cash.NewStore()

	_, err := st.Insert(cash.NewBuilder(money("500")).StudentID(1).Note("lesson pack"), testNow)
	require.NoError(t, err)
	_, err = st.Insert(cash.NewBuilder(money("-120")).Note("range maintenance"), testNow)
	require.NoError(t, err)

	// Empty query matches everything
	all, err := st.Search(cash.NewQuery())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Student filter
	got, err := st.Search(cash.NewQuery().StudentID(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(money("500")))

	// Amount range filter
	got, err = st.Search(cash.NewQuery().AmountRange(money("-200"), money("0")))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.IsNegative())
}

func TestStore_AmountBeyondLimitRejected(t *testing.T) {
	st := cash.NewStore()

	_, err := st.Insert(cash.NewBuilder(money("100000000.01")), testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, 0, st.Len())
}

func TestStore_InvertedAmountRangeFailsFast(t *testing.T) {
	st := cash.NewStore()

	_, err := st.Search(cash.NewQuery().AmountRange(money("10"), money("-10")))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}

// =============================================================================
// INSTALLMENT GENERATION
// =============================================================================

func TestGenerateNext_InheritsPlanFields(t *testing.T) {
	// GIVEN: A 1200/12 monthly plan at installment 1
	// WHEN: Generating the next installment
	// THEN: The new record is installment 2, amount 100, pending, same
	//       plan shape, owned by the same student

	st := cash.NewStore()
	newPlan(t, st, 42, "1200", 12)

	c, err := st.GenerateNext(42, due(time.April), testNow)
	require.NoError(t, err)

	require.NotNil(t, c.Installment)
	assert.Equal(t, 2, c.Installment.CurrentInstallment)
	assert.Equal(t, 12, c.Installment.TotalInstallments)
	assert.Equal(t, cash.StatusPending, c.Installment.Status)
	assert.Equal(t, due(time.April), c.Installment.DueDate)
	assert.True(t, c.Amount.Equal(money("100")))
	require.NotNil(t, c.StudentID)
	assert.Equal(t, core.ID(7), *c.StudentID)
	assert.Equal(t, "installment 2 of 12", c.Note)
}

func TestGenerateNext_CompletePlanConflicts(t *testing.T) {
	// GIVEN: A 1200/12 plan
	// WHEN: Generating installments until the plan is complete
	// THEN: Eleven generations succeed, the twelfth fails as a conflict

	st := cash.NewStore()
	newPlan(t, st, 42, "1200", 12)

	for i := 2; i <= 12; i++ {
		c, err := st.GenerateNext(42, due(time.April), testNow)
		require.NoError(t, err, "generation %d", i)
		assert.Equal(t, i, c.Installment.CurrentInstallment)
	}

	_, err := st.GenerateNext(42, due(time.April), testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Len(t, st.ByPlan(42), 12)
}

func TestGenerateNext_UnknownPlanNotFound(t *testing.T) {
	st := cash.NewStore()

	_, err := st.GenerateNext(999, due(time.April), testNow)
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}

func TestGenerateNext_TruncatedSplit(t *testing.T) {
	// 1000 over 3 installments: each is 333, never 333.33...
	st := cash.NewStore()
	newPlan(t, st, 5, "1000", 3)

	c, err := st.GenerateNext(5, due(time.April), testNow)
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(money("333")), "got %s", c.Amount.Value)
}

func TestGenerateNext_TieBrokenByHighestID(t *testing.T) {
	// GIVEN: Two records both claiming installment 1 of 3
	// WHEN: Generating the next installment
	// THEN: The successor is 2, derived from the later record

	st := cash.NewStore()
	newPlan(t, st, 9, "300", 3)
	newPlan(t, st, 9, "300", 3) // duplicate index, higher id

	c, err := st.GenerateNext(9, due(time.April), testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Installment.CurrentInstallment)
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

func TestUpdateStatus_RequiresInstallment(t *testing.T) {
	st := cash.NewStore()
	plain, err := st.Insert(cash.NewBuilder(money("50")), testNow)
	require.NoError(t, err)

	_, err = st.UpdateStatus(plain.ID, cash.StatusPaid)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflict)

	first := newPlan(t, st, 3, "900", 9)
	got, err := st.UpdateStatus(first.ID, cash.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, cash.StatusPaid, got.Installment.Status)
}

func TestCancelPlan_IdempotentWithConflictOnNoop(t *testing.T) {
	// GIVEN: A plan with two records, one already paid
	// WHEN: Cancelling twice
	// THEN: First call cancels both non-cancelled records; second call
	//       changes nothing and reports a conflict

	st := cash.NewStore()
	first := newPlan(t, st, 8, "600", 6)
	_, err := st.GenerateNext(8, due(time.April), testNow)
	require.NoError(t, err)
	_, err = st.UpdateStatus(first.ID, cash.StatusPaid)
	require.NoError(t, err)

	count, err := st.CancelPlan(8)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, c := range st.ByPlan(8) {
		assert.Equal(t, cash.StatusCancelled, c.Installment.Status)
	}

	_, err = st.CancelPlan(8)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestMarkOverdue_OnlyTouchesPastDuePending(t *testing.T) {
	// GIVEN: A pending past-due record, a pending future record, and a
	//        paid past-due record
	// WHEN: Sweeping
	// THEN: Exactly the pending past-due record flips to Overdue

	st := cash.NewStore()
	pastDue := newPlan(t, st, 1, "100", 1)
	futurePlan := newPlan(t, st, 2, "100", 1)
	paid := newPlan(t, st, 3, "100", 1)

	_, err := st.Update(futurePlan.ID, cash.NewUpdater().
		Installment(cash.NewInstallment(2, money("100"), 1, cash.Monthly(), testNow.AddDate(0, 1, 0))))
	require.NoError(t, err)
	_, err = st.UpdateStatus(paid.ID, cash.StatusPaid)
	require.NoError(t, err)

	sweepAt := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	changed := st.MarkOverdue(sweepAt)
	assert.Equal(t, 1, changed)

	got, err := st.Get(pastDue.ID)
	require.NoError(t, err)
	assert.Equal(t, cash.StatusOverdue, got.Installment.Status)

	// Second sweep is a no-op
	assert.Equal(t, 0, st.MarkOverdue(sweepAt))
}

// =============================================================================
// FREQUENCY
// =============================================================================

func TestFrequency_WireFormat(t *testing.T) {
	assert.Equal(t, "Monthly", cash.Monthly().String())
	assert.Equal(t, "Custom15", cash.Custom(15).String())

	f, err := cash.ParseFrequency("Custom15")
	require.NoError(t, err)
	assert.Equal(t, cash.Custom(15), f)

	_, err = cash.ParseFrequency("Fortnightly")
	require.Error(t, err)

	_, err = cash.ParseFrequency("Custom9999")
	require.Error(t, err)
}

// =============================================================================
// DATE FILTERS
// =============================================================================

func TestQuery_DateRangeUsesEffectiveDate(t *testing.T) {
	// GIVEN: A plain record entered in March and an installment due in June
	// WHEN: Filtering by a June window
	// THEN: Only the installment matches, via its due date

	st := cash.NewStore()
	_, err := st.Insert(cash.NewBuilder(money("10")), testNow)
	require.NoError(t, err)
	inst := cash.NewInstallment(4, money("600"), 6, cash.Monthly(), due(time.June))
	_, err = st.Insert(cash.NewBuilder(money("100")).Installment(inst), testNow)
	require.NoError(t, err)

	got, err := st.Search(cash.NewQuery().DateRange(due(time.June).AddDate(0, 0, -1), due(time.June).AddDate(0, 0, 1)))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].HasInstallment())
}
