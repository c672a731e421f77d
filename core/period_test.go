package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmx/studio-engine/core"
)

func TestTimePeriod_Bounds(t *testing.T) {
	// Wednesday, 2026-02-18 15:04
	now := time.Date(2026, time.February, 18, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		period core.TimePeriod
		start  time.Time
	}{
		{core.PeriodToday, time.Date(2026, time.February, 18, 0, 0, 0, 0, time.UTC)},
		{core.PeriodThisWeek, time.Date(2026, time.February, 16, 0, 0, 0, 0, time.UTC)}, // Monday
		{core.PeriodThisMonth, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{core.PeriodThisYear, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		start, end, err := tt.period.Bounds(now)
		require.NoError(t, err, "period %s", tt.period)
		assert.Equal(t, tt.start, start, "period %s", tt.period)
		assert.Equal(t, now, end, "period %s", tt.period)
	}
}

func TestTimePeriod_WeekStartsMonday_OnSunday(t *testing.T) {
	// GIVEN: A Sunday anchor
	// WHEN: Computing the ThisWeek window
	// THEN: The window starts the previous Monday, not today

	sunday := time.Date(2026, time.February, 22, 10, 0, 0, 0, time.UTC)

	start, _, err := core.PeriodThisWeek.Bounds(sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.February, 16, 0, 0, 0, 0, time.UTC), start)
}

func TestParseTimePeriod_RejectsUnknownValues(t *testing.T) {
	_, err := core.ParseTimePeriod("LastTuesday")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)

	p, err := core.ParseTimePeriod("ThisMonth")
	require.NoError(t, err)
	assert.Equal(t, core.PeriodThisMonth, p)
}
