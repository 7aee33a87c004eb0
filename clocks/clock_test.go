package clocks_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"reduction.dev/linedup/clocks"
)

func TestFrozenClock(t *testing.T) {
	c := clocks.NewFrozenClock()
	start := c.Now()
	c.Advance(time.Minute)
	assert.Equal(t, time.Minute, c.Now().Sub(start))

	calls := 0
	ticker := c.Every(time.Second, func() { calls++ }, "count")
	c.TickEvery("count")
	ticker.Trigger()
	assert.Equal(t, 2, calls)

	ticker.Stop()
	assert.False(t, c.HasEvery("count"))
	assert.Panics(t, func() { c.TickEvery("count") })
}

func TestSystemClock_EveryUntilStopped(t *testing.T) {
	var calls atomic.Int64
	ticker := clocks.NewSystemClock().Every(time.Millisecond, func() { calls.Add(1) }, "")
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)

	ticker.Stop()
	ticker.Stop()
	stopped := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), stopped+1, "at most a tick in flight when stopped")
}
