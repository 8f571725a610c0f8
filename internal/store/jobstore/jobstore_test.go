package jobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	job, created, err := s.Create(ctx, "j1", domain.TaskRecommend)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.JobQueued, job.Status)

	require.NoError(t, s.MarkRunning(ctx, "j1"))
	got, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, got.Status)

	require.NoError(t, s.Complete(ctx, "j1", map[string]int{"n": 3}, "persist failed"))
	got, err = s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobSucceeded, got.Status)
	assert.JSONEq(t, `{"n":3}`, string(got.Result))
	assert.Equal(t, "persist failed", got.Warning)
}

func TestStore_CreateDeduplicatesPendingJobs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, created, err := s.Create(ctx, "enrich-11021", domain.TaskEnrichLivability)
	require.NoError(t, err)
	require.True(t, created)

	_, created, err = s.Create(ctx, "enrich-11021", domain.TaskEnrichLivability)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, s.Fail(ctx, "enrich-11021", errors.New("scrape failed")))

	job, created, err := s.Create(ctx, "enrich-11021", domain.TaskEnrichLivability)
	require.NoError(t, err)
	assert.True(t, created, "finished jobs can be re-run")
	assert.Empty(t, job.Error)
}

func TestStore_GetUnknown(t *testing.T) {
	_, err := newTestStore(t).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_FailStale(t *testing.T) {
	ctx := context.Background()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(clk)
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	s := newTestStore(t)
	_, _, err := s.Create(ctx, "old", domain.TaskRecommend)
	require.NoError(t, err)
	_, _, err = s.Create(ctx, "done", domain.TaskRecommend)
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, "done", "ok", ""))

	clk.Advance(time.Hour)
	_, _, err = s.Create(ctx, "fresh", domain.TaskRecommend)
	require.NoError(t, err)

	n, err := s.FailStale(ctx, clk.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	old, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, old.Status)

	fresh, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, fresh.Status)

	assert.NoError(t, s.CollectGarbage())
}
