package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Initialize())
	return store
}

func TestSaveRun_AssignsID(t *testing.T) {
	store := setupStore(t)

	run := &Run{
		Target:    "widgets",
		StartedAt: time.Now(),
		Duration:  1500 * time.Millisecond,
		Fetched:   30,
		Kept:      12,
		Written:   12,
		Status:    StatusOK,
	}
	require.NoError(t, store.SaveRun(run))
	assert.NotZero(t, run.ID)
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	store := setupStore(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveRun(&Run{
			Target:    "widgets",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    StatusOK,
		}))
	}

	runs, err := store.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestLastRun_PerTarget(t *testing.T) {
	store := setupStore(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(&Run{Target: "a", StartedAt: base, Status: StatusOK}))
	require.NoError(t, store.SaveRun(&Run{
		Target:    "a",
		StartedAt: base.Add(time.Hour),
		Status:    StatusFailed,
		Error:     "access denied",
	}))
	require.NoError(t, store.SaveRun(&Run{Target: "b", StartedAt: base, Status: StatusOK}))

	last, err := store.LastRun("a")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, StatusFailed, last.Status)
	assert.Equal(t, "access denied", last.Error)
}

func TestLastRun_UnknownTarget(t *testing.T) {
	store := setupStore(t)

	last, err := store.LastRun("nope")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestSaveRun_RoundTripsDuration(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.SaveRun(&Run{
		Target:    "widgets",
		StartedAt: time.Now(),
		Duration:  2750 * time.Millisecond,
		Status:    StatusOK,
	}))

	last, err := store.LastRun("widgets")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 2750*time.Millisecond, last.Duration)
}
