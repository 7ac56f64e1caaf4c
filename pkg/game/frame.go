package game

import (
	fp "github.com/repeale/fp-go"
)

// Frame is everything a shell needs to draw one tick. Frames share no memory
// with the engine.
type Frame struct {
	Tick     uint64
	Phase    Phase
	Running  bool
	GameOver bool
	Score    int

	PlayerOffset float64
	Player       Rect
	Obstacles    []Rect

	Width       float64
	Height      float64
	GroundLevel float64
}

// Renderer draws frames. Render is called from the simulation loop and must
// not block.
type Renderer interface {
	Render(frame Frame)
}

func (e *Engine) Frame() Frame {
	return Frame{
		Tick:         e.state.Tick,
		Phase:        e.state.Phase,
		Running:      e.state.Phase == PhaseRunning,
		GameOver:     e.state.Phase == PhaseEnded,
		Score:        e.state.Score,
		PlayerOffset: e.state.Player.Offset,
		Player:       e.PlayerBox(),
		Obstacles: fp.Map(func(o Obstacle) Rect {
			return o.Rect()
		})(e.state.Obstacles),
		Width:       e.settings.Width,
		Height:      e.settings.Height,
		GroundLevel: e.settings.GroundLevel,
	}
}
