package jsonfile_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/core"
	"github.com/qmx/studio-engine/store/jsonfile"
	"github.com/qmx/studio-engine/student"
	"github.com/qmx/studio-engine/studio"
)

func testSnapshot() studio.Snapshot {
	savedAt := time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC)
	lessons := 8
	start := savedAt.AddDate(0, 0, -10)
	end := savedAt.AddDate(0, 0, 20)
	studentID := core.ID(1)
	inst := cash.NewInstallment(3, core.NewMoney(900), 9, cash.Custom(14), savedAt.AddDate(0, 0, 14))

	return studio.Snapshot{
		SavedAt: savedAt,
		Students: []student.Student{
			{ID: 1, Name: "Alice", Age: 15, Class: student.ClassMonth,
				Subject: student.SubjectShooting, Rings: []float64{9.5, 8.0},
				LessonsLeft: &lessons, MembershipStart: &start, MembershipEnd: &end},
			{ID: 4, Name: "Bob", Age: 30, Class: student.ClassOthers, Subject: student.SubjectOthers},
		},
		NextStudentID: 5,
		Cash: []cash.Cash{
			{ID: 1, StudentID: &studentID, Amount: core.Money{Value: decimal.RequireFromString("100.50")},
				Note: "first installment", CreatedAt: savedAt, Installment: &inst},
			{ID: 2, Amount: core.NewMoney(-40), CreatedAt: savedAt},
		},
		NextCashID: 3,
	}
}

func TestJSONFile_RoundTrip(t *testing.T) {
	// GIVEN: A snapshot with every optional field exercised
	// WHEN: Saving and loading through a fresh store on the same path
	// THEN: The loaded snapshot matches field for field

	path := filepath.Join(t.TempDir(), "data", "studio.json")
	require.NoError(t, jsonfile.New(path).Save(testSnapshot()))

	got, found, err := jsonfile.New(path).Load()
	require.NoError(t, err)
	require.True(t, found)

	want := testSnapshot()
	assert.True(t, want.SavedAt.Equal(got.SavedAt))
	assert.Equal(t, want.NextStudentID, got.NextStudentID)
	assert.Equal(t, want.NextCashID, got.NextCashID)
	require.Len(t, got.Students, 2)
	assert.Equal(t, want.Students[0].Rings, got.Students[0].Rings)
	require.NotNil(t, got.Students[0].LessonsLeft)
	assert.Equal(t, 8, *got.Students[0].LessonsLeft)
	require.Len(t, got.Cash, 2)
	assert.True(t, got.Cash[0].Amount.Equal(want.Cash[0].Amount))
	require.NotNil(t, got.Cash[0].Installment)
	assert.Equal(t, cash.Custom(14), got.Cash[0].Installment.Frequency)
	assert.Nil(t, got.Cash[1].Installment)
}

func TestJSONFile_MissingFileMeansFreshInstall(t *testing.T) {
	st := jsonfile.New(filepath.Join(t.TempDir(), "absent.json"))

	_, found, err := st.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJSONFile_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := jsonfile.New(path).Load()
	assert.Error(t, err)
}

func TestJSONFile_SaveReplacesAtomically(t *testing.T) {
	// GIVEN: An existing saved state
	// WHEN: Saving a smaller snapshot over it
	// THEN: The file holds exactly the new state, with no temp leftovers

	dir := t.TempDir()
	path := filepath.Join(dir, "studio.json")
	st := jsonfile.New(path)
	require.NoError(t, st.Save(testSnapshot()))
	require.NoError(t, st.Save(studio.Snapshot{SavedAt: time.Now(), NextStudentID: 1, NextCashID: 1}))

	got, found, err := st.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, got.Students)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
