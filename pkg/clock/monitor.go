package clock

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
)

// Monitor watches a loop for turns that run too long. The loop calls Begin at
// the top of each turn, Mark as it goes, and End when the turn is done; if a
// turn outlives the timeout, the last mark is logged.
type Monitor struct {
	log     zerolog.Logger
	timeout time.Duration

	mutex     deadlock.RWMutex
	lastMark  string
	busy      bool
	busySince time.Time
	reported  bool
}

func NewMonitor(logger zerolog.Logger, timeout time.Duration) *Monitor {
	return &Monitor{
		log:     logger,
		timeout: timeout,
	}
}

func (m *Monitor) Begin(mark string) {
	m.mutex.Lock()
	m.busy = true
	m.busySince = time.Now()
	m.lastMark = mark
	m.reported = false
	m.mutex.Unlock()
}

func (m *Monitor) Mark(mark string) {
	m.mutex.Lock()
	m.lastMark = mark
	m.mutex.Unlock()
}

func (m *Monitor) End() {
	m.mutex.Lock()
	m.busy = false
	m.lastMark = ""
	m.mutex.Unlock()
}

// Stalled reports whether the current turn has outlived the timeout.
func (m *Monitor) Stalled() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.busy && time.Since(m.busySince) > m.timeout
}

func (m *Monitor) check() bool {
	if !m.Stalled() {
		return false
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.reported {
		return true
	}
	m.reported = true

	m.log.Error().
		Dur("elapsed", time.Since(m.busySince)).
		Str("mark", m.lastMark).
		Msg("event loop no longer healthy")
	return true
}

// Poll checks the loop until ctx is done.
func (m *Monitor) Poll(ctx context.Context) {
	ticker := time.NewTicker(m.timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-ctx.Done():
			return
		}
	}
}
