package rotor

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultReadTimeout bounds every port read.
	DefaultReadTimeout = 100 * time.Millisecond
	// MaxReadTimeout is the largest read timeout accepted.
	MaxReadTimeout = 200 * time.Millisecond

	readChunk = 256
	// maxPending caps buffered bytes without a newline; noise beyond it is dropped.
	maxPending = 4096
)

// Manager owns the lifecycle of the single peripheral connection.
// States are Disconnected and Connected; at most one port is open at a time.
type Manager struct {
	open        Opener
	baudRate    int
	readTimeout time.Duration
	logger      *zap.Logger

	mu      sync.RWMutex
	port    Port
	name    string
	pending []byte
	chunk   []byte
}

// NewManager creates a disconnected Manager.
func NewManager(open Opener, baudRate int, readTimeout time.Duration, logger *zap.Logger) *Manager {
	if open == nil {
		open = OpenSerial
	}
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	readTimeout = min(readTimeout, MaxReadTimeout)
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		open:        open,
		baudRate:    baudRate,
		readTimeout: readTimeout,
		logger:      logger,
		chunk:       make([]byte, readChunk),
	}
}

// Connect opens the named port. On failure the state is unchanged.
func (m *Manager) Connect(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.port != nil {
		return &ConnectionError{Port: name, Err: ErrAlreadyConnected}
	}

	port, err := m.open(name, m.baudRate)
	if err != nil {
		return &ConnectionError{Port: name, Err: err}
	}
	if err := port.SetReadTimeout(m.readTimeout); err != nil {
		port.Close()
		return &ConnectionError{Port: name, Err: fmt.Errorf("failed to set read timeout: %w", err)}
	}

	m.port = port
	m.name = name
	m.pending = m.pending[:0]

	m.logger.Info("Connected",
		zap.String("port", name),
		zap.Int("baud_rate", m.baudRate),
		zap.Duration("read_timeout", m.readTimeout),
	)
	return nil
}

// Disconnect closes the port. It is a no-op while disconnected.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.port == nil {
		return nil
	}

	if err := m.port.Close(); err != nil {
		m.logger.Warn("Error closing serial port", zap.String("port", m.name), zap.Error(err))
	}
	m.logger.Info("Disconnected", zap.String("port", m.name))

	m.port = nil
	m.name = ""
	m.pending = m.pending[:0]
	return nil
}

// IsConnected returns whether a port is open.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.port != nil
}

// PortName returns the name of the open port, or "" while disconnected.
func (m *Manager) PortName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// SendLine writes one complete line to the peripheral.
func (m *Manager) SendLine(line []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.port == nil {
		return ErrNotConnected
	}

	n, err := m.port.Write(line)
	if err != nil {
		return &IoError{Op: "write", Err: err}
	}
	if n != len(line) {
		return &IoError{Op: "write", Err: fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(line))}
	}
	return nil
}

// ReadLine returns the next complete line including its terminator.
// It performs at most one bounded port read; (nil, nil) means no complete
// line arrived within the read timeout.
func (m *Manager) ReadLine() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.port == nil {
		return nil, ErrNotConnected
	}

	if line := m.takeLine(); line != nil {
		return line, nil
	}

	n, err := m.port.Read(m.chunk)
	if n > 0 {
		m.pending = append(m.pending, m.chunk[:n]...)
	}
	if err != nil && err != io.EOF {
		return nil, &IoError{Op: "read", Err: err}
	}

	if line := m.takeLine(); line != nil {
		return line, nil
	}
	if len(m.pending) > maxPending {
		m.logger.Debug("Dropping unterminated input", zap.Int("bytes", len(m.pending)))
		m.pending = m.pending[:0]
	}
	return nil, nil
}

// takeLine removes and returns the first complete line from the pending buffer.
func (m *Manager) takeLine() []byte {
	i := bytes.IndexByte(m.pending, '\n')
	if i < 0 {
		return nil
	}
	line := make([]byte, i+1)
	copy(line, m.pending[:i+1])
	m.pending = append(m.pending[:0], m.pending[i+1:]...)
	return line
}
