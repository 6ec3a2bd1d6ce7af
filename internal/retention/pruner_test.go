package retention

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakeStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPruner_RunOnceUsesRetentionWindow(t *testing.T) {
	store := &fakeStore{deleted: 4}
	p := NewPruner(store, 24*time.Hour, "@hourly", testLogger())
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	n, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, fixed.Add(-24*time.Hour), store.cutoffs[0])
}

func TestPruner_RunOncePropagatesError(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	p := NewPruner(store, time.Hour, "@hourly", testLogger())

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPruner_StartInvalidSchedule(t *testing.T) {
	p := NewPruner(&fakeStore{}, time.Hour, "not a cron spec", testLogger())
	err := p.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid prune schedule")
}

func TestPruner_StartRejectsNonPositiveRetention(t *testing.T) {
	p := NewPruner(&fakeStore{}, 0, "@hourly", testLogger())
	require.Error(t, p.Start())
}

func TestPruner_StartRunsOnSchedule(t *testing.T) {
	store := &fakeStore{}
	p := NewPruner(store, time.Hour, "@every 1s", testLogger())
	require.NoError(t, p.Start())
	defer p.Stop()

	assert.Eventually(t, func() bool { return store.calls() > 0 }, 5*time.Second, 50*time.Millisecond)
}

func TestPruner_StopWithoutRuns(t *testing.T) {
	p := NewPruner(&fakeStore{}, time.Hour, "@hourly", testLogger())
	require.NoError(t, p.Start())
	p.Stop()
}
