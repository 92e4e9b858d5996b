package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile_teardown/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRecordAndGet(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	run := Run{
		ID:           "run-1",
		SubjectDir:   "/data/jane",
		StartedAt:    started,
		Duration:     1500 * time.Millisecond,
		ContentCount: 2,
		Score:        83,
		Passed:       true,
		States: map[model.ContentKey]model.State{
			model.ProfileKey: model.StateDone,
			model.PostKey(1): model.StateFailed,
		},
	}
	require.NoError(t, st.Record(ctx, run))

	got, err := st.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.SubjectDir, got.SubjectDir)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, run.Duration, got.Duration)
	assert.Equal(t, 83, got.Score)
	assert.True(t, got.Passed)
	assert.Equal(t, run.States, got.States)

	_, err = st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.Record(ctx, Run{
			ID:         id,
			SubjectDir: "/data/" + id,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			States:     map[model.ContentKey]model.State{},
		}))
	}

	runs, err := st.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	all, err := st.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordRequiresID(t *testing.T) {
	st := openTemp(t)
	assert.Error(t, st.Record(context.Background(), Run{}))
}

func TestOpenMemory(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	var name string
	require.NoError(t, st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&name))
	assert.Equal(t, "runs", name)
}
