package rotor

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/itohio/gowheel/pkg/config"
	"github.com/itohio/gowheel/pkg/protocol"
)

// Mock simulates the peripheral for testing and development.
// It emits A:<angle> lines from a sinusoidal sweep whose amplitude shrinks
// as the commanded resistance grows, and accepts R:<resistance> commands.
type Mock struct {
	cfg *config.MockConfig

	mu          sync.Mutex
	closed      bool
	readTimeout time.Duration
	startTime   time.Time
	nextSample  time.Time
	resistance  float64
	rnd         *rand.Rand
	inbox       []byte
	commands    []float64
}

// NewMock creates a simulated peripheral port.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	now := time.Now()
	return &Mock{
		cfg:         cfg,
		readTimeout: DefaultReadTimeout,
		startTime:   now,
		nextSample:  now,
		rnd:         rand.New(rand.NewSource(now.UnixNano())),
	}
}

// MockOpener returns an Opener that ignores the port name and opens a new Mock.
func MockOpener(cfg *config.MockConfig) Opener {
	return func(string, int) (Port, error) {
		return NewMock(cfg), nil
	}
}

// SetReadTimeout sets the maximum time Read waits for the next sample.
func (m *Mock) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTimeout = t
	return nil
}

// Read blocks until the next simulated sample is due or the read timeout
// elapses, in which case it returns (0, nil).
func (m *Mock) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	wait := time.Until(m.nextSample)
	timeout := m.readTimeout
	m.mu.Unlock()

	if wait > timeout {
		time.Sleep(timeout)
		return 0, nil
	}
	if wait > 0 {
		time.Sleep(wait)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	m.nextSample = m.nextSample.Add(m.cfg.SampleRate)
	if m.nextSample.Before(time.Now()) {
		m.nextSample = time.Now().Add(m.cfg.SampleRate)
	}

	line := fmt.Appendf(nil, "%s%.2f\n", protocol.AnglePrefix, m.angle(time.Now()))
	return copy(p, line), nil
}

// Write accepts resistance commands. Partial lines are buffered.
func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.ErrClosedPipe
	}

	m.inbox = append(m.inbox, p...)
	for {
		i := bytes.IndexByte(m.inbox, '\n')
		if i < 0 {
			break
		}
		line := m.inbox[:i+1]
		if r, err := protocol.ParseResistance(line); err == nil {
			m.resistance = r
			m.commands = append(m.commands, r)
		}
		m.inbox = append(m.inbox[:0], m.inbox[i+1:]...)
	}
	return len(p), nil
}

// Close stops the simulated peripheral.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Resistance returns the last commanded resistance.
func (m *Mock) Resistance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resistance
}

// Commands returns every resistance command received so far.
func (m *Mock) Commands() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]float64, len(m.commands))
	copy(result, m.commands)
	return result
}

// angle computes the simulated shaft angle. Must be called with mu held.
func (m *Mock) angle(now time.Time) float64 {
	t := now.Sub(m.startTime).Seconds()
	period := m.cfg.SweepPeriod.Seconds()
	if period <= 0 {
		period = 1
	}

	// Full resistance damps the sweep to 20% of its free amplitude
	amplitude := m.cfg.SweepDegrees * (1 - 0.8*m.resistance/protocol.MaxResistance)
	a := amplitude * math.Sin(2*math.Pi*t/period)
	return a + (m.rnd.Float64()*2-1)*m.cfg.Noise
}
