// Package shell is a terminal front end for the game. It draws every frame it
// is handed, shows the sensor status and turns key presses into restarts.
package shell

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cfoust/tiltrun/pkg/game"
	"github.com/cfoust/tiltrun/pkg/sensor"
	"github.com/cfoust/tiltrun/pkg/utils"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

type Shell struct {
	canvas Canvas
	// nil when drawing to something other than a terminal
	screen tcell.Screen

	restart func()

	frames chan game.Frame
	redraw chan struct{}
	stop   chan struct{}
	closed atomic.Bool

	mutex  deadlock.Mutex
	status string
	last   game.Frame

	log zerolog.Logger
}

// Open initializes the terminal and returns a shell that draws to it.
func Open(onRestart func()) (*Shell, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}
	screen.SetStyle(styleDefault)
	screen.HideCursor()

	shell := NewWithCanvas(screen, onRestart)
	shell.screen = screen
	return shell, nil
}

func NewWithCanvas(canvas Canvas, onRestart func()) *Shell {
	return &Shell{
		canvas:  canvas,
		restart: onRestart,
		frames:  make(chan game.Frame, 1),
		redraw:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		status:  "Starting...",
		log:     log.With().Str("component", "shell").Logger(),
	}
}

// Render implements game.Renderer. Only the newest frame is kept if the shell
// falls behind.
func (s *Shell) Render(frame game.Frame) {
	for {
		select {
		case s.frames <- frame:
			return
		default:
		}

		select {
		case <-s.frames:
		default:
		}
	}
}

func (s *Shell) requestRedraw() {
	select {
	case s.redraw <- struct{}{}:
	default:
	}
}

func (s *Shell) SetStatus(status sensor.Status) {
	s.mutex.Lock()
	s.status = status.String()
	s.mutex.Unlock()
	s.requestRedraw()
}

func (s *Shell) Status() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}

// WatchStatus shows sensor status changes until ctx is done.
func (s *Shell) WatchStatus(ctx context.Context, topic *utils.Topic[sensor.Status]) {
	subscriber := topic.Subscribe()
	defer subscriber.Done()

	for {
		select {
		case status := <-subscriber.Recv():
			s.SetStatus(status)
		case <-ctx.Done():
			return
		}
	}
}

// HandleKey reacts to a key press and reports whether the shell should quit.
func (s *Shell) HandleKey(key tcell.Key, r rune) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		switch r {
		case 'q', 'Q':
			return true
		case 'r', 'R':
			s.mutex.Lock()
			running := s.last.Running
			s.mutex.Unlock()

			if running {
				return false
			}

			s.log.Info().Msg("restart requested")
			if s.restart != nil {
				s.restart()
			}
		}
	}
	return false
}

func (s *Shell) draw() {
	s.mutex.Lock()
	frame := s.last
	status := s.status
	s.mutex.Unlock()

	Draw(s.canvas, frame, status)
}

func (s *Shell) pollEvents(events chan<- tcell.Event) {
	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			return
		}

		select {
		case events <- ev:
		case <-s.stop:
			return
		}
	}
}

// Run draws frames and handles input until ctx is done, the user quits, or
// the shell is closed.
func (s *Shell) Run(ctx context.Context) {
	events := make(chan tcell.Event)
	if s.screen != nil {
		go s.pollEvents(events)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case frame := <-s.frames:
			s.mutex.Lock()
			s.last = frame
			s.mutex.Unlock()
			s.draw()
		case <-s.redraw:
			s.draw()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				s.screen.Sync()
				s.draw()
			case *tcell.EventKey:
				if s.HandleKey(ev.Key(), ev.Rune()) {
					s.log.Info().Msg("quit requested")
					return
				}
			}
		}
	}
}

// Close restores the terminal. It is safe to call more than once.
func (s *Shell) Close() {
	if s.closed.Swap(true) {
		return
	}

	close(s.stop)
	if s.screen != nil {
		s.screen.Fini()
	}
}
