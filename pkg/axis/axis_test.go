package axis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	m := New(0, 0)
	assert.Equal(t, 16384, m.Center)
	assert.Equal(t, 32768, m.FullScale)
	assert.Equal(t, 180.0, m.HalfDomain)

	m = New(4096, 90)
	assert.Equal(t, 2048, m.Center)
	assert.Equal(t, 4096, m.FullScale)
	assert.Equal(t, 90.0, m.HalfDomain)
}

func TestMap(t *testing.T) {
	m := New(DefaultFullScale, DefaultHalfDomain)

	tests := []struct {
		name  string
		angle float64
		want  int
	}{
		{"center", 0, 16384},
		{"full right", 180, 32768},
		{"full left", -180, 0},
		{"half right", 90, 24576},
		{"telemetry sample", -37.25, 16384 - 3391},
		{"clamps high", 400, 32768},
		{"clamps low", -400, 0},
		{"positive infinity", math.Inf(1), 32768},
		{"negative infinity", math.Inf(-1), 0},
		{"nan", math.NaN(), 16384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Map(tt.angle))
		})
	}
}

func TestMap_Monotonic(t *testing.T) {
	m := New(DefaultFullScale, DefaultHalfDomain)

	prev := m.Map(-200)
	for a := -200.0; a <= 200.0; a += 0.05 {
		v := m.Map(a)
		assert.GreaterOrEqual(t, v, prev, "angle %.2f", a)
		prev = v
	}
}

func TestMap_OtherResolution(t *testing.T) {
	m := New(1000, 180)
	assert.Equal(t, 500, m.Map(0))
	assert.Equal(t, 1000, m.Map(180))
	assert.Equal(t, 0, m.Map(-180))
	assert.Equal(t, 750, m.Map(90))
}
