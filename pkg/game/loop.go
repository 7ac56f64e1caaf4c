package game

import (
	"context"

	"github.com/cfoust/tiltrun/pkg/clock"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Resetter is reset at the start of every run. The gesture detector is one.
type Resetter interface {
	Reset()
}

// Loop is the only thing that mutates the engine. It steps the engine on every
// tick, hands the resulting frame to the renderers, and pauses the ticker while
// no run is in progress.
type Loop struct {
	engine    *Engine
	ticker    *clock.Ticker
	resetters []Resetter
	renderers []Renderer
	monitor   *clock.Monitor
	restart   chan struct{}
	log       zerolog.Logger
}

func NewLoop(engine *Engine, ticker *clock.Ticker, renderers ...Renderer) *Loop {
	return &Loop{
		engine:    engine,
		ticker:    ticker,
		renderers: renderers,
		restart:   make(chan struct{}, 1),
		log:       log.With().Str("component", "loop").Logger(),
	}
}

// OnStart registers something to reset whenever a run starts.
func (l *Loop) OnStart(resetter Resetter) {
	l.resetters = append(l.resetters, resetter)
}

func (l *Loop) AddRenderer(renderer Renderer) {
	l.renderers = append(l.renderers, renderer)
}

func (l *Loop) SetMonitor(monitor *clock.Monitor) {
	l.monitor = monitor
}

// RequestRestart asks for a new run. It may be called from any goroutine and
// is ignored while a run is in progress.
func (l *Loop) RequestRestart() {
	select {
	case l.restart <- struct{}{}:
	default:
	}
}

// Run starts the first run and drives the engine until ctx is done. The ticker
// is stopped when Run returns.
func (l *Loop) Run(ctx context.Context) {
	defer l.ticker.Stop()

	l.start(false)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.ticker.C:
			l.tick()
		case <-l.restart:
			if !l.start(true) {
				l.log.Debug().Msg("ignoring restart during a run")
			}
		}
	}
}

func (l *Loop) begin(mark string) {
	if l.monitor != nil {
		l.monitor.Begin(mark)
	}
}

func (l *Loop) mark(mark string) {
	if l.monitor != nil {
		l.monitor.Mark(mark)
	}
}

func (l *Loop) end() {
	if l.monitor != nil {
		l.monitor.End()
	}
}

// start begins a run. A restart is refused while a run is in progress.
func (l *Loop) start(restart bool) bool {
	l.begin("start")
	defer l.end()

	if !restart {
		l.engine.Start()
	} else if !l.engine.Restart() {
		return false
	}

	for _, resetter := range l.resetters {
		resetter.Reset()
	}

	if l.ticker.Paused() {
		l.ticker.Resume()
	}

	l.log.Info().Msg("game started")
	l.render()
	return true
}

func (l *Loop) tick() {
	if l.engine.Phase() != PhaseRunning {
		return
	}

	l.begin("step")
	defer l.end()

	l.engine.Step()

	l.mark("render")
	l.render()

	if l.engine.Phase() == PhaseEnded {
		l.ticker.Pause()
	}
}

func (l *Loop) render() {
	frame := l.engine.Frame()
	for _, renderer := range l.renderers {
		renderer.Render(frame)
	}
}
