package config

import "time"

type SensorSettings struct {
	Address string `json:"address" yaml:"address"`
	Port    int    `json:"port" yaml:"port"`
}

type ClockSettings struct {
	TickMillis          int `json:"tickMillis" yaml:"tickMillis"`
	HealthTimeoutMillis int `json:"healthTimeoutMillis" yaml:"healthTimeoutMillis"`
}

func (c ClockSettings) TickInterval() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}

func (c ClockSettings) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutMillis) * time.Millisecond
}

type GestureSettings struct {
	DeltaThreshold float64 `json:"deltaThreshold" yaml:"deltaThreshold"`
	AngleThreshold float64 `json:"angleThreshold" yaml:"angleThreshold"`
	MinForce       float64 `json:"minForce" yaml:"minForce"`
	MaxForce       float64 `json:"maxForce" yaml:"maxForce"`
	ForceScale     float64 `json:"forceScale" yaml:"forceScale"`
}

type GameSettings struct {
	Width             float64 `json:"width" yaml:"width"`
	Height            float64 `json:"height" yaml:"height"`
	GroundLevel       float64 `json:"groundLevel" yaml:"groundLevel"`
	Gravity           float64 `json:"gravity" yaml:"gravity"`
	PlayerX           float64 `json:"playerX" yaml:"playerX"`
	PlayerWidth       float64 `json:"playerWidth" yaml:"playerWidth"`
	PlayerHeight      float64 `json:"playerHeight" yaml:"playerHeight"`
	ObstacleSpeed     float64 `json:"obstacleSpeed" yaml:"obstacleSpeed"`
	ObstacleWidth     float64 `json:"obstacleWidth" yaml:"obstacleWidth"`
	ObstacleMinHeight int     `json:"obstacleMinHeight" yaml:"obstacleMinHeight"`
	ObstacleMaxHeight int     `json:"obstacleMaxHeight" yaml:"obstacleMaxHeight"`
	SpawnInterval     int     `json:"spawnInterval" yaml:"spawnInterval"`
}

type FeedSettings struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

type ShellSettings struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	LogFile string `json:"logFile" yaml:"logFile"`
}

type Config struct {
	Sensor  SensorSettings  `json:"sensor" yaml:"sensor"`
	Clock   ClockSettings   `json:"clock" yaml:"clock"`
	Gesture GestureSettings `json:"gesture" yaml:"gesture"`
	Game    GameSettings    `json:"game" yaml:"game"`
	Feed    FeedSettings    `json:"feed" yaml:"feed"`
	Shell   ShellSettings   `json:"shell" yaml:"shell"`
}
