// Package axis converts shaft angles into virtual joystick axis values.
package axis

import "math"

// Reference resolution of a 15-bit axis.
const (
	DefaultFullScale  = 32768
	DefaultHalfDomain = 180.0
)

// Mapper maps angles in [-HalfDomain, HalfDomain] degrees onto [0, FullScale],
// with zero degrees at Center. Angles outside the domain clamp.
type Mapper struct {
	Center     int
	FullScale  int
	HalfDomain float64
}

// New creates a Mapper for a backend with the given full scale. Non-positive
// arguments fall back to the reference resolution.
func New(fullScale int, halfDomain float64) Mapper {
	if fullScale <= 0 {
		fullScale = DefaultFullScale
	}
	if halfDomain <= 0 {
		halfDomain = DefaultHalfDomain
	}
	return Mapper{
		Center:     fullScale / 2,
		FullScale:  fullScale,
		HalfDomain: halfDomain,
	}
}

// Map returns center + round(angle/halfDomain * center) clamped to [0, FullScale].
// NaN maps to Center.
func (m Mapper) Map(angle float64) int {
	if math.IsNaN(angle) {
		return m.Center
	}

	offset := angle / m.HalfDomain * float64(m.Center)
	v := float64(m.Center) + math.Round(offset)

	switch {
	case v <= 0:
		return 0
	case v >= float64(m.FullScale):
		return m.FullScale
	}
	return int(v)
}
