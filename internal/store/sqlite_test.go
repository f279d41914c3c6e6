package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := sampleRun()
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Policy, got.Policy)
	assert.Equal(t, run.ParcelsSource, got.ParcelsSource)
	assert.Equal(t, run.ZoningSource, got.ZoningSource)
	assert.Equal(t, 2, got.ParcelCount)
	assert.Equal(t, 1, got.MatchedCount)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)

	require.Len(t, got.Rows, 2)
	require.NotNil(t, got.Rows[0].DistrictIndex)
	assert.Equal(t, 1, *got.Rows[0].DistrictIndex)
	assert.Equal(t, "R5", got.Rows[0].DistrictID)
	assert.Equal(t, 25.0, got.Rows[0].OverlapArea)
	assert.Nil(t, got.Rows[1].DistrictIndex)
	assert.Empty(t, got.Rows[1].DistrictID)
}

func TestSQLite_SaveRun_AssignsID(t *testing.T) {
	st := newTestSQLiteStore(t)
	run := sampleRun()
	run.ID = ""

	require.NoError(t, st.SaveRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)

	_, err := st.GetRun(context.Background(), run.ID)
	assert.NoError(t, err)
}

func TestSQLite_SaveRun_DuplicateIDLeavesNoRows(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, sampleRun()))

	dup := sampleRun()
	dup.Rows = dup.Rows[:1]
	require.Error(t, st.SaveRun(ctx, dup))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Rows, 2)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, policy := range []string{"largest", "first", "largest"} {
		run := sampleRun()
		run.ID = ""
		run.Policy = policy
		run.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.SaveRun(ctx, run))
	}

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.Nil(t, all[0].Rows)

	largest, err := st.ListRuns(ctx, RunFilter{Policy: "largest"})
	require.NoError(t, err)
	assert.Len(t, largest, 2)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "first", page[0].Policy)
}
