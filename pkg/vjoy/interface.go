// Package vjoy talks to the host virtual joystick: it writes the steering
// axis and reads the force feedback master gain published by the game.
package vjoy

import "errors"

// ErrUnavailable is returned when the virtual joystick driver cannot be used.
var ErrUnavailable = errors.New("virtual joystick unavailable")

// MaxGain is the top of the master gain scale reported by GainSource.
const MaxGain = 100

// AxisWriter sets the steering axis of a virtual joystick.
type AxisWriter interface {
	SetAxis(value int) error
	FullScale() int // Largest accepted axis value
}

// GainSource reports the current force feedback master gain in [0, MaxGain].
type GainSource interface {
	MasterGain() (int, error)
}

// Device is a virtual joystick with both an axis and a feedback channel.
type Device interface {
	AxisWriter
	GainSource
	Close() error
}

var (
	_ Device     = (*Mock)(nil)
	_ AxisWriter = Discard{}
)

// Discard is an AxisWriter that drops every value.
type Discard struct {
	Scale int
}

// SetAxis ignores the value.
func (Discard) SetAxis(int) error { return nil }

// FullScale returns Scale.
func (d Discard) FullScale() int { return d.Scale }
