package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeExpirer) ExpireStale(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return f.n, f.err
}

type fakeSweeper struct{ calls atomic.Int32 }

func (f *fakeSweeper) Sweep() int {
	f.calls.Add(1)
	return 3
}

func TestExpireRun(t *testing.T) {
	e := &fakeExpirer{n: 2}
	ExpireRun(e, time.Second)()
	assert.Equal(t, int32(1), e.calls.Load())

	failing := &fakeExpirer{err: errors.New("db down")}
	assert.NotPanics(t, ExpireRun(failing, time.Second))
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(time.Second)
	e := &fakeExpirer{}
	sw := &fakeSweeper{}

	require.NoError(t, s.ExpirePurchases("@every 1s", e))
	require.NoError(t, s.Sweep(JobSweepLimiters, "@every 1s", sw))
	assert.Error(t, s.ExpirePurchases("not a schedule", e))

	s.Start()
	require.Eventually(t, func() bool {
		return e.calls.Load() > 0 && sw.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestFields(t *testing.T) {
	f := fields([]interface{}{"entry", 1, "next", "soon", "dangling"})
	assert.Equal(t, 1, f["entry"])
	assert.Equal(t, "soon", f["next"])
	assert.NotContains(t, f, "dangling")
}
