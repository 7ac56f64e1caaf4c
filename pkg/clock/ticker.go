// Package clock drives the simulation at a fixed period.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Ticker delivers ticks at a fixed period and can be paused without losing
// its goroutine. Ticks are dropped, never queued, when the reader falls
// behind.
type Ticker struct {
	C <-chan time.Time // The channel on which the ticks are delivered.

	mutex   deadlock.Mutex
	period  time.Duration
	pause   chan bool
	paused  atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
	ticker  *time.Ticker
}

// New returns a running Ticker.
func New(d time.Duration) *Ticker {
	c := make(chan time.Time, 1)

	t := &Ticker{
		C:      c,
		period: d,
		pause:  make(chan bool),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		ticker: time.NewTicker(d),
	}

	go t.run(c)

	return t
}

func (t *Ticker) run(c chan<- time.Time) {
	defer close(t.done)
	defer t.ticker.Stop()

	paused := false
	for {
		var ticks <-chan time.Time
		if !paused {
			ticks = t.ticker.C
		}

		select {
		case now := <-ticks:
			select {
			case c <- now:
			default:
			}
		case shouldPause := <-t.pause:
			if paused && !shouldPause {
				t.ticker.Reset(t.period)
			}
			paused = shouldPause
		case <-t.stop:
			return
		}
	}
}

func (t *Ticker) Period() time.Duration {
	return t.period
}

func (t *Ticker) setPaused(paused bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.stopped.Load() {
		return
	}

	t.pause <- paused
	t.paused.Store(paused)
}

// Pause stops ticks from being delivered until Resume is called.
func (t *Ticker) Pause() {
	t.setPaused(true)
}

// Resume restarts a paused ticker. The next tick arrives one full period later.
func (t *Ticker) Resume() {
	t.setPaused(false)
}

func (t *Ticker) Paused() bool {
	return t.paused.Load()
}

// Stop shuts the ticker down for good. It is safe to call more than once.
func (t *Ticker) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.stopped.Swap(true) {
		return
	}

	close(t.stop)
	<-t.done
}

func (t *Ticker) Stopped() bool {
	return t.stopped.Load()
}
