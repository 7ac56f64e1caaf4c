// Package game runs the endless runner simulation.
package game

import (
	"math/rand"
	"sync/atomic"

	"github.com/cfoust/tiltrun/pkg/gesture"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine owns all simulation state. Step, Start and Restart must only be
// called from one goroutine; Submit and Airborne are safe from any goroutine.
type Engine struct {
	settings Settings
	rng      *rand.Rand
	state    State

	mailbox  *Mailbox
	airborne atomic.Bool

	log zerolog.Logger
}

func New(settings Settings, rng *rand.Rand) *Engine {
	return &Engine{
		settings: settings,
		rng:      rng,
		mailbox:  NewMailbox(),
		log:      log.With().Str("component", "game").Logger(),
	}
}

func (e *Engine) Settings() Settings {
	return e.settings
}

// Start resets the game and begins a new run.
func (e *Engine) Start() {
	e.state = State{
		Phase: PhaseRunning,
		Player: Player{
			Offset: e.settings.GroundLevel,
		},
		Obstacles: make([]Obstacle, 0),
	}
	e.mailbox.Clear()
	e.airborne.Store(false)
}

// Restart starts a new run unless one is in progress.
func (e *Engine) Restart() bool {
	if e.state.Phase == PhaseRunning {
		return false
	}

	e.Start()
	return true
}

func (e *Engine) Phase() Phase {
	return e.state.Phase
}

func (e *Engine) Score() int {
	return e.state.Score
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	state := e.state
	state.Obstacles = append([]Obstacle(nil), e.state.Obstacles...)
	return state
}

// Airborne is the player's airborne flag as of the end of the last step.
func (e *Engine) Airborne() bool {
	return e.airborne.Load()
}

// Submit queues a jump for the next step. It returns false if a jump is
// already pending.
func (e *Engine) Submit(command gesture.JumpCommand) bool {
	return e.mailbox.Offer(command)
}

func (e *Engine) PlayerBox() Rect {
	return Rect{
		Left:   e.settings.PlayerX,
		Bottom: e.state.Player.Offset,
		Width:  e.settings.PlayerWidth,
		Height: e.settings.PlayerHeight,
	}
}

// Step advances the simulation by one tick. It does nothing unless a run is
// in progress.
func (e *Engine) Step() {
	if e.state.Phase != PhaseRunning {
		return
	}

	s := &e.state
	s.Tick++

	e.applyJump()
	e.applyGravity()
	e.spawn()
	e.moveObstacles()

	e.airborne.Store(s.Player.Airborne)
}

func (e *Engine) applyJump() {
	command, ok := e.mailbox.Take()
	if !ok {
		return
	}

	player := &e.state.Player
	if player.Airborne {
		return
	}

	player.Velocity = command.Force
	player.Airborne = true
}

func (e *Engine) applyGravity() {
	player := &e.state.Player
	player.Velocity -= e.settings.Gravity
	player.Offset += player.Velocity

	if player.Offset <= e.settings.GroundLevel {
		player.Offset = e.settings.GroundLevel
		player.Velocity = 0
		player.Airborne = false
	}
}

func (e *Engine) spawn() {
	s := &e.state
	s.spawnCounter++
	if s.spawnCounter < e.settings.SpawnInterval {
		return
	}
	s.spawnCounter = 0

	spread := e.settings.ObstacleMaxHeight - e.settings.ObstacleMinHeight
	height := e.settings.ObstacleMinHeight
	if spread > 0 {
		height += e.rng.Intn(spread)
	}

	s.Obstacles = append(s.Obstacles, Obstacle{
		Left:   e.settings.Width,
		Bottom: e.settings.GroundLevel,
		Width:  e.settings.ObstacleWidth,
		Height: float64(height),
	})
}

// moveObstacles scrolls every obstacle, scores the ones that left the play
// area and ends the run on the first collision. Obstacles after a collision
// do not move.
func (e *Engine) moveObstacles() {
	s := &e.state
	player := e.PlayerBox()

	kept := s.Obstacles[:0]
	for i, obstacle := range s.Obstacles {
		obstacle.Left -= e.settings.ObstacleSpeed

		if obstacle.Left < -obstacle.Width {
			s.Score++
			continue
		}

		kept = append(kept, obstacle)

		if player.Intersects(obstacle.Rect()) {
			kept = append(kept, s.Obstacles[i+1:]...)
			s.Phase = PhaseEnded
			e.log.Info().
				Int("score", s.Score).
				Uint64("tick", s.Tick).
				Msg("game over")
			break
		}
	}
	s.Obstacles = kept
}
