package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestInflight_DuplicateWithinWindow(t *testing.T) {
	clk := &stepClock{now: time.Unix(1000, 0)}
	f := newInflight(10*time.Second, clk.Now)

	t1, ok := f.Acquire("g", 100)
	require.True(t, ok)

	_, ok = f.Acquire("g", 100)
	assert.False(t, ok, "same ending inside the window is a duplicate")

	clk.Add(11 * time.Second)
	t2, ok := f.Acquire("g", 100)
	require.True(t, ok, "after the window the newer call takes over")

	assert.False(t, f.Begin(t1))
	assert.True(t, f.Begin(t2))
}

func TestInflight_SupersedeOnDifferentEnding(t *testing.T) {
	f := newInflight(10*time.Second, time.Now)

	sweep, ok := f.Acquire("g", 500)
	require.True(t, ok)

	end, ok := f.Acquire("g", 100)
	require.True(t, ok, "a manual end supersedes the waiting task")

	assert.True(t, f.Begin(end))
	assert.False(t, f.Begin(sweep), "stale task observes the mismatch")

	f.Release(sweep)
	assert.Equal(t, 1, f.Len(), "stale release leaves the newer slot")

	f.Release(end)
	assert.Equal(t, 0, f.Len())
}

func TestInflight_FinishingBlocksNewAcquire(t *testing.T) {
	f := newInflight(time.Second, time.Now)

	tk, ok := f.Acquire("g", 1)
	require.True(t, ok)
	require.True(t, f.Begin(tk))

	_, ok = f.Acquire("g", 2)
	assert.False(t, ok)

	f.Release(tk)
	_, ok = f.Acquire("g", 2)
	assert.True(t, ok)
}

func TestInflight_ConcurrentAcquireSingleWinner(t *testing.T) {
	f := newInflight(time.Minute, time.Now)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		began int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, ok := f.Acquire("g", 42)
			if !ok {
				return
			}
			if f.Begin(tk) {
				mu.Lock()
				began++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, began)
}
