package feed

import (
	"github.com/cfoust/tiltrun/pkg/game"
	"github.com/cfoust/tiltrun/pkg/sensor"

	fp "github.com/repeale/fp-go"
)

// Messages are CBOR encoded and sent as binary websocket messages.
const (
	FrameOp   = "frame"
	StatusOp  = "status"
	RestartOp = "restart"
)

type GenericMessage struct {
	Op string `cbor:"op"`
}

type RectMessage struct {
	Left   float64 `cbor:"left"`
	Bottom float64 `cbor:"bottom"`
	Width  float64 `cbor:"width"`
	Height float64 `cbor:"height"`
}

type FrameMessage struct {
	Op           string        `cbor:"op"`
	Tick         uint64        `cbor:"tick"`
	Running      bool          `cbor:"running"`
	GameOver     bool          `cbor:"gameOver"`
	Score        int           `cbor:"score"`
	PlayerOffset float64       `cbor:"playerOffset"`
	Player       RectMessage   `cbor:"player"`
	Obstacles    []RectMessage `cbor:"obstacles"`
	Width        float64       `cbor:"width"`
	Height       float64       `cbor:"height"`
	GroundLevel  float64       `cbor:"groundLevel"`
}

type StatusMessage struct {
	Op    string `cbor:"op"`
	State string `cbor:"state"`
	Text  string `cbor:"text"`
}

func rectMessage(rect game.Rect) RectMessage {
	return RectMessage{
		Left:   rect.Left,
		Bottom: rect.Bottom,
		Width:  rect.Width,
		Height: rect.Height,
	}
}

func NewFrameMessage(frame game.Frame) FrameMessage {
	return FrameMessage{
		Op:           FrameOp,
		Tick:         frame.Tick,
		Running:      frame.Running,
		GameOver:     frame.GameOver,
		Score:        frame.Score,
		PlayerOffset: frame.PlayerOffset,
		Player:       rectMessage(frame.Player),
		Obstacles:    fp.Map(rectMessage)(frame.Obstacles),
		Width:        frame.Width,
		Height:       frame.Height,
		GroundLevel:  frame.GroundLevel,
	}
}

func NewStatusMessage(status sensor.Status) StatusMessage {
	return StatusMessage{
		Op:    StatusOp,
		State: status.State.String(),
		Text:  status.String(),
	}
}
