package vjoy

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/gowheel/pkg/history"
)

// MockAxisHistory is the number of axis writes a Mock remembers.
const MockAxisHistory = 256

// Mock is an in-memory virtual joystick.
// If a profile period is set, MasterGain follows a triangle wave between 0
// and MaxGain, otherwise it returns the gain last passed to SetGain.
type Mock struct {
	mu        sync.Mutex
	fullScale int
	axis      *history.Buffer[int]
	gain      int
	gainErr   error
	period    time.Duration
	start     time.Time
	closed    bool
}

// NewMock creates a mock device. A zero period disables the gain profile.
func NewMock(fullScale int, period time.Duration) *Mock {
	return &Mock{
		fullScale: fullScale,
		axis:      history.New[int](MockAxisHistory),
		period:    period,
		start:     time.Now(),
	}
}

// SetAxis records the axis value. Only the last MockAxisHistory values are kept.
func (m *Mock) SetAxis(value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrUnavailable
	}
	m.axis.Push(value)
	return nil
}

// FullScale returns the configured axis full scale.
func (m *Mock) FullScale() int {
	return m.fullScale
}

// MasterGain returns the simulated master gain.
func (m *Mock) MasterGain() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gainErr != nil {
		return 0, m.gainErr
	}
	if m.closed {
		return 0, ErrUnavailable
	}
	if m.period <= 0 {
		return m.gain, nil
	}

	phase := math.Mod(time.Since(m.start).Seconds()/m.period.Seconds(), 1)
	tri := 1 - math.Abs(2*phase-1)
	return int(math.Round(tri * MaxGain)), nil
}

// SetGain sets the gain returned when no profile is running.
func (m *Mock) SetGain(gain int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = gain
}

// FailGain makes MasterGain return err. A nil err restores normal operation.
func (m *Mock) FailGain(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gainErr = err
}

// Axis returns the remembered axis values, oldest first.
func (m *Mock) Axis() []int {
	return m.axis.Values()
}

// Close marks the device closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
