// Package gesture turns a stream of tilt angles into jump commands.
package gesture

import (
	"math"

	"github.com/cfoust/tiltrun/pkg/config"
	"github.com/cfoust/tiltrun/pkg/sensor"

	opt "github.com/repeale/fp-go/option"
	"github.com/sasha-s/go-deadlock"
)

// JumpCommand asks the game to jump with the given initial velocity.
type JumpCommand struct {
	Force float64
}

type Tuning struct {
	// Minimum rise between two samples, in degrees
	DeltaThreshold float64
	// Minimum absolute angle, in degrees
	AngleThreshold float64
	MinForce       float64
	MaxForce       float64
	// Force added per degree of rise
	ForceScale float64
}

func DefaultTuning() Tuning {
	return Tuning{
		DeltaThreshold: 2.0,
		AngleThreshold: 5.0,
		MinForce:       8.0,
		MaxForce:       18.0,
		ForceScale:     1.5,
	}
}

func TuningFromConfig(settings config.GestureSettings) Tuning {
	return Tuning{
		DeltaThreshold: settings.DeltaThreshold,
		AngleThreshold: settings.AngleThreshold,
		MinForce:       settings.MinForce,
		MaxForce:       settings.MaxForce,
		ForceScale:     settings.ForceScale,
	}
}

// Force maps a rise in degrees to a jump force in [MinForce, MaxForce].
func (t Tuning) Force(delta float64) float64 {
	force := t.MinForce + delta*t.ForceScale
	if math.IsNaN(force) {
		return t.MinForce
	}
	return math.Max(t.MinForce, math.Min(t.MaxForce, force))
}

// Detector fires a jump on a fast upward tilt. The only state it keeps is the
// previous angle.
type Detector struct {
	mutex    deadlock.Mutex
	tuning   Tuning
	previous float64
}

func NewDetector(tuning Tuning) *Detector {
	return &Detector{
		tuning: tuning,
	}
}

// Feed records the sample and returns a jump if it should fire one. The
// previous angle is updated whether or not a jump fires, and no jump fires
// while the player is airborne.
func (d *Detector) Feed(sample sensor.AngleSample, airborne bool) opt.Option[JumpCommand] {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	angle := sample.Degrees
	delta := angle - d.previous
	d.previous = angle

	if airborne || !(delta > d.tuning.DeltaThreshold) || !(angle > d.tuning.AngleThreshold) {
		return opt.None[JumpCommand]()
	}

	return opt.Some(JumpCommand{
		Force: d.tuning.Force(delta),
	})
}

// Reset forgets the previous angle, as at the start of a game.
func (d *Detector) Reset() {
	d.mutex.Lock()
	d.previous = 0
	d.mutex.Unlock()
}

func (d *Detector) Previous() float64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.previous
}

func (d *Detector) SetTuning(tuning Tuning) {
	d.mutex.Lock()
	d.tuning = tuning
	d.mutex.Unlock()
}

func (d *Detector) Tuning() Tuning {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.tuning
}
