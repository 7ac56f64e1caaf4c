package game

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cfoust/tiltrun/pkg/clock"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelRenderer chan Frame

func (c channelRenderer) Render(frame Frame) {
	select {
	case c <- frame:
	default:
	}
}

type countingResetter struct {
	count atomic.Int32
}

func (c *countingResetter) Reset() {
	c.count.Add(1)
}

// A play area where the first obstacle spawns right on top of the player.
func doomedSettings() Settings {
	settings := DefaultSettings()
	settings.Width = 60
	settings.SpawnInterval = 5
	return settings
}

func waitFor(t *testing.T, frames channelRenderer, match func(Frame) bool) Frame {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case frame := <-frames:
			if match(frame) {
				return frame
			}
		case <-timeout:
			t.Fatal("timed out waiting for frame")
		}
	}
}

func startLoop(t *testing.T, settings Settings) (*Loop, channelRenderer, *countingResetter, *clock.Ticker) {
	t.Helper()
	frames := make(channelRenderer, 1024)
	resetter := &countingResetter{}
	ticker := clock.New(time.Millisecond)
	engine := New(settings, rand.New(rand.NewSource(1)))

	loop := NewLoop(engine, ticker, frames)
	loop.OnStart(resetter)
	loop.SetMonitor(clock.NewMonitor(zerolog.Nop(), time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return loop, frames, resetter, ticker
}

func TestLoopRendersTicks(t *testing.T) {
	_, frames, resetter, _ := startLoop(t, DefaultSettings())

	first := waitFor(t, frames, func(f Frame) bool { return true })
	assert.True(t, first.Running)
	assert.Equal(t, uint64(0), first.Tick)
	assert.Equal(t, int32(1), resetter.count.Load())

	later := waitFor(t, frames, func(f Frame) bool { return f.Tick >= 5 })
	assert.True(t, later.Running)
}

func TestLoopPausesOnGameOverAndRestarts(t *testing.T) {
	loop, frames, resetter, ticker := startLoop(t, doomedSettings())

	over := waitFor(t, frames, func(f Frame) bool { return f.GameOver })
	assert.False(t, over.Running)
	assert.Equal(t, PhaseEnded, over.Phase)

	require.Eventually(t, ticker.Paused, time.Second, time.Millisecond)

	// no frames while the game is over
	time.Sleep(20 * time.Millisecond)
	for len(frames) > 0 {
		frame := <-frames
		require.True(t, frame.GameOver)
	}

	loop.RequestRestart()
	restarted := waitFor(t, frames, func(f Frame) bool { return f.Running })
	assert.Equal(t, 0, restarted.Score)
	assert.Empty(t, restarted.Obstacles)
	assert.Equal(t, int32(2), resetter.count.Load())
	assert.False(t, ticker.Paused())
}

func TestLoopIgnoresRestartDuringRun(t *testing.T) {
	loop, frames, resetter, _ := startLoop(t, DefaultSettings())

	waitFor(t, frames, func(f Frame) bool { return f.Tick >= 3 })
	loop.RequestRestart()

	// ticks keep counting up from the same run
	frame := waitFor(t, frames, func(f Frame) bool { return f.Tick >= 10 })
	assert.True(t, frame.Running)
	assert.Equal(t, int32(1), resetter.count.Load())
}

func TestLoopStopsTicker(t *testing.T) {
	frames := make(channelRenderer, 16)
	ticker := clock.New(time.Millisecond)
	loop := NewLoop(New(DefaultSettings(), rand.New(rand.NewSource(1))), ticker)
	loop.AddRenderer(frames)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loop.Run(ctx)

	assert.True(t, ticker.Stopped())
	require.NotEmpty(t, frames)
}
