package stats_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/stats"
	"github.com/qmx/studio-engine/student"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var statsNow = time.Date(2026, time.June, 17, 12, 0, 0, 0, time.UTC) // Wednesday

func money(s string) core.Money {
	return core.Money{Value: decimal.RequireFromString(s)}
}

func tx(id core.ID, amount string, createdAt time.Time, studentID core.ID) cash.Cash {
	c := cash.Cash{ID: id, Amount: money(amount), CreatedAt: createdAt}
	if studentID != 0 {
		c.StudentID = &studentID
	}
	return c
}

func membershipWindow(start, end time.Time) (*time.Time, *time.Time) {
	return &start, &end
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_RevenueMinusExpenseIsSignedSum(t *testing.T) {
	// GIVEN: Mixed income and expense records
	// THEN: revenue - expense equals the signed sum of all amounts

	records := []cash.Cash{
		tx(1, "500", statsNow, 0),
		tx(2, "-120.50", statsNow, 0),
		tx(3, "79.50", statsNow, 0),
		tx(4, "-9", statsNow, 0),
	}

	d := stats.ComputeDashboard(nil, records, statsNow)

	assert.True(t, d.TotalRevenue.Equal(money("579.50")))
	assert.True(t, d.TotalExpense.Equal(money("129.50")))

	signed := money("0")
	for _, c := range records {
		signed = signed.Add(c.Amount)
	}
	assert.True(t, d.TotalRevenue.Sub(d.TotalExpense).Equal(signed))
}

func TestDashboard_ScoresAndActiveCourses(t *testing.T) {
	lessons := 5
	noLessons := 0
	activeStart, activeEnd := membershipWindow(statsNow.AddDate(0, 0, -10), statsNow.AddDate(0, 0, 10))
	expiredStart, expiredEnd := membershipWindow(statsNow.AddDate(0, -2, 0), statsNow.AddDate(0, -1, 0))

	students := []student.Student{
		{ID: 1, Name: "Alice", Rings: []float64{9.5, 8.0}, MembershipStart: activeStart, MembershipEnd: activeEnd},
		{ID: 2, Name: "Bob", Rings: []float64{6.5}, LessonsLeft: &lessons},
		{ID: 3, Name: "Carol", MembershipStart: expiredStart, MembershipEnd: expiredEnd, LessonsLeft: &noLessons},
	}

	d := stats.ComputeDashboard(students, nil, statsNow)

	assert.Equal(t, 3, d.TotalStudents)
	assert.InDelta(t, 8.0, d.AverageScore, 1e-9) // (9.5+8.0+6.5)/3
	assert.InDelta(t, 9.5, d.MaxScore, 1e-9)
	assert.Equal(t, 2, d.ActiveCourses) // Alice (membership), Bob (lessons)
}

func TestDashboard_EmptyStateIsAllZeroes(t *testing.T) {
	d := stats.ComputeDashboard(nil, nil, statsNow)

	assert.Zero(t, d.TotalStudents)
	assert.Zero(t, d.AverageScore)
	assert.Zero(t, d.MaxScore)
	assert.True(t, d.TotalRevenue.IsZero())
	assert.True(t, d.TotalExpense.IsZero())
}

// =============================================================================
// PER-STUDENT
// =============================================================================

func TestStudentStats_AggregatesOwnRecordsOnly(t *testing.T) {
	start, end := membershipWindow(statsNow.AddDate(0, 0, -1), statsNow.AddDate(0, 0, 30))
	alice := student.Student{ID: 1, Name: "Alice", Rings: []float64{9.5, 8.0},
		MembershipStart: start, MembershipEnd: end}

	records := []cash.Cash{
		tx(1, "200", statsNow, 1),
		tx(2, "-50", statsNow, 1),
		tx(3, "999", statsNow, 2), // someone else's
		tx(4, "10", statsNow, 0),  // unassigned
	}

	st := stats.ComputeStudent(alice, records, statsNow)

	assert.True(t, st.TotalPayments.Equal(money("150")))
	assert.Equal(t, 2, st.PaymentCount)
	assert.Equal(t, 2, st.ScoreCount)
	require.NotNil(t, st.AverageScore)
	assert.InDelta(t, 8.75, *st.AverageScore, 1e-9)
	assert.Equal(t, stats.MembershipActive, st.MembershipStatus)
}

func TestStudentStats_MembershipLabels(t *testing.T) {
	none := student.Student{ID: 1}
	assert.Equal(t, stats.MembershipNone, stats.ComputeStudent(none, nil, statsNow).MembershipStatus)

	start, end := membershipWindow(statsNow.AddDate(0, -2, 0), statsNow.AddDate(0, -1, 0))
	expired := student.Student{ID: 2, MembershipStart: start, MembershipEnd: end}
	st := stats.ComputeStudent(expired, nil, statsNow)
	assert.Equal(t, stats.MembershipExpired, st.MembershipStatus)
	assert.Nil(t, st.AverageScore)
}

// =============================================================================
// PER-PERIOD FINANCIAL
// =============================================================================

func TestFinancial_BucketsByPeriod(t *testing.T) {
	// statsNow is Wednesday 2026-06-17
	inst := cash.NewInstallment(1, money("600"), 6, cash.Monthly(), statsNow)
	thisWeek := cash.Cash{ID: 1, Amount: money("100"), CreatedAt: statsNow.AddDate(0, 0, -2), Installment: &inst}
	lastWeek := tx(2, "40", statsNow.AddDate(0, 0, -7), 0)
	lastYear := tx(3, "-30", statsNow.AddDate(-1, 0, 0), 0)

	records := []cash.Cash{thisWeek, lastWeek, lastYear}

	week, err := stats.ComputeFinancial(records, core.PeriodThisWeek, statsNow)
	require.NoError(t, err)
	assert.Equal(t, 1, week.TransactionCount)
	assert.Equal(t, 1, week.InstallmentCount)
	assert.True(t, week.TotalIncome.Equal(money("100")))
	assert.True(t, week.Net.Equal(money("100")))

	month, err := stats.ComputeFinancial(records, core.PeriodThisMonth, statsNow)
	require.NoError(t, err)
	assert.Equal(t, 2, month.TransactionCount)
	assert.True(t, month.TotalIncome.Equal(money("140")))

	year, err := stats.ComputeFinancial(records, core.PeriodThisYear, statsNow)
	require.NoError(t, err)
	assert.Equal(t, 2, year.TransactionCount)
	assert.True(t, year.Net.Equal(money("140")))
}

func TestFinancial_NetIsIncomeMinusExpense(t *testing.T) {
	records := []cash.Cash{
		tx(1, "100", statsNow, 0),
		tx(2, "-60", statsNow, 0),
	}

	f, err := stats.ComputeFinancial(records, core.PeriodToday, statsNow)
	require.NoError(t, err)
	assert.True(t, f.TotalIncome.Equal(money("100")))
	assert.True(t, f.TotalExpense.Equal(money("60")))
	assert.True(t, f.Net.Equal(money("40")))
}
