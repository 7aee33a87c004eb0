// Package clocks lets periodic work run on the system clock or on a frozen
// clock that tests advance by hand.
package clocks

import (
	"fmt"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	// Every calls fn every d until the returned ticker is stopped. The label
	// identifies the func to FrozenClock.TickEvery.
	Every(d time.Duration, fn func(), label string) *Ticker
}

type Ticker struct {
	stop    func()
	trigger func()
}

func (t *Ticker) Stop() {
	t.stop()
}

// Immediately trigger the configured function, resetting the time before the
// next tick.
func (t *Ticker) Trigger() {
	t.trigger()
}

type SystemClock struct{}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) Every(d time.Duration, fn func(), _label string) *Ticker {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	// Serializes ticks with manual triggers.
	var mu sync.Mutex
	tick := func() {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				tick()
			case <-done:
				return
			}
		}
	}()

	return &Ticker{
		stop: func() {
			once.Do(func() {
				ticker.Stop()
				close(done)
			})
		},
		trigger: func() {
			tick()
			ticker.Reset(d)
		},
	}
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

var _ Clock = (*SystemClock)(nil)

// FrozenClock only moves when advanced, and Every funcs only run when ticked.
type FrozenClock struct {
	now        time.Time
	everyFuncs map[string]func()
	mu         *sync.Mutex
}

func NewFrozenClock() *FrozenClock {
	return &FrozenClock{
		now:        time.Unix(0, 0),
		everyFuncs: make(map[string]func()),
		mu:         &sync.Mutex{},
	}
}

func (c *FrozenClock) Every(d time.Duration, fn func(), label string) *Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.everyFuncs[label] = fn
	return &Ticker{
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.everyFuncs, label)
		},
		trigger: fn,
	}
}

func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TickEvery runs the func registered under label. It panics if none is.
func (c *FrozenClock) TickEvery(label string) {
	c.mu.Lock()
	fn := c.everyFuncs[label]
	c.mu.Unlock()

	if fn == nil {
		panic(fmt.Sprintf("FrozenClock has no `every` func registered for label %s", label))
	}
	fn()
}

// HasEvery reports whether a func is registered and not stopped under label.
func (c *FrozenClock) HasEvery(label string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.everyFuncs[label]
	return ok
}

var _ Clock = (*FrozenClock)(nil)
