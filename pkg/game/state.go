package game

import (
	"fmt"

	"github.com/cfoust/tiltrun/pkg/config"
)

type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not started"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

type Settings struct {
	Width       float64
	Height      float64
	GroundLevel float64
	// Subtracted from the player's vertical velocity every tick
	Gravity float64

	PlayerX      float64
	PlayerWidth  float64
	PlayerHeight float64

	// Distance obstacles travel left every tick
	ObstacleSpeed     float64
	ObstacleWidth     float64
	ObstacleMinHeight int
	ObstacleMaxHeight int
	// Ticks between obstacles
	SpawnInterval int
}

func DefaultSettings() Settings {
	return Settings{
		Width:             800,
		Height:            400,
		GroundLevel:       10,
		Gravity:           0.5,
		PlayerX:           50,
		PlayerWidth:       30,
		PlayerHeight:      50,
		ObstacleSpeed:     5,
		ObstacleWidth:     40,
		ObstacleMinHeight: 30,
		ObstacleMaxHeight: 70,
		SpawnInterval:     100,
	}
}

func SettingsFromConfig(game config.GameSettings) Settings {
	return Settings{
		Width:             game.Width,
		Height:            game.Height,
		GroundLevel:       game.GroundLevel,
		Gravity:           game.Gravity,
		PlayerX:           game.PlayerX,
		PlayerWidth:       game.PlayerWidth,
		PlayerHeight:      game.PlayerHeight,
		ObstacleSpeed:     game.ObstacleSpeed,
		ObstacleWidth:     game.ObstacleWidth,
		ObstacleMinHeight: game.ObstacleMinHeight,
		ObstacleMaxHeight: game.ObstacleMaxHeight,
		SpawnInterval:     game.SpawnInterval,
	}
}

type Player struct {
	// Height of the player's feet above the bottom of the play area
	Offset   float64
	Velocity float64
	Airborne bool
}

type Obstacle struct {
	Left   float64
	Bottom float64
	Width  float64
	Height float64
}

func (o Obstacle) Rect() Rect {
	return Rect{
		Left:   o.Left,
		Bottom: o.Bottom,
		Width:  o.Width,
		Height: o.Height,
	}
}

type State struct {
	Phase     Phase
	Tick      uint64
	Score     int
	Player    Player
	Obstacles []Obstacle
	// Ticks since the last obstacle was spawned
	spawnCounter int
}
