package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	idle  atomic.Int64
}

func (c *countingSweeper) Sweep(_ context.Context, idle time.Duration) int {
	c.calls.Add(1)
	c.idle.Store(int64(idle))
	return 0
}

func TestSchedulerSweepsPeriodically(t *testing.T) {
	sw := &countingSweeper{}
	s := NewScheduler(sw, time.Second, time.Hour, zerolog.Nop())
	require.NoError(t, s.Start())
	defer func() { <-s.Stop().Done() }()

	require.Eventually(t, func() bool { return sw.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, int64(time.Hour), sw.idle.Load())
}

func TestSchedulerDisabled(t *testing.T) {
	sw := &countingSweeper{}
	s := NewScheduler(sw, 0, time.Hour, zerolog.Nop())
	require.NoError(t, s.Start())
	<-s.Stop().Done()
	assert.EqualValues(t, 0, sw.calls.Load())
}
