package gesture

import (
	"github.com/cfoust/tiltrun/pkg/sensor"

	opt "github.com/repeale/fp-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Target is whatever consumes jumps, usually the game engine. Both methods
// must be safe to call from the sensor goroutine.
type Target interface {
	Airborne() bool
	// Submit offers a command and reports whether it was accepted.
	Submit(command JumpCommand) bool
}

// Router connects a sensor link to a Target through a Detector.
type Router struct {
	detector *Detector
	target   Target
	log      zerolog.Logger
}

func NewRouter(detector *Detector, target Target) *Router {
	return &Router{
		detector: detector,
		target:   target,
		log:      log.With().Str("component", "gesture").Logger(),
	}
}

func (r *Router) HandleSample(sample sensor.AngleSample) {
	jump := r.detector.Feed(sample, r.target.Airborne())
	if opt.IsNone(jump) {
		return
	}

	accepted := r.target.Submit(jump.Value)
	r.log.Debug().
		Float64("angle", sample.Degrees).
		Float64("force", jump.Value.Force).
		Bool("accepted", accepted).
		Msg("jump")
}

var _ sensor.Sink = (*Router)(nil)
