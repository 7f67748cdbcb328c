// Package rotortest provides an in-memory peripheral port for tests.
package rotortest

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/itohio/gowheel/pkg/rotor"
)

// ErrInjected is returned by reads or writes after Fail* is called.
var ErrInjected = errors.New("injected failure")

// Port is a scripted rotor.Port. Bytes passed to Feed are returned by Read
// in order; Read with nothing queued waits for the read timeout and returns (0, nil).
type Port struct {
	mu          sync.Mutex
	feed        [][]byte
	written     bytes.Buffer
	readTimeout time.Duration
	closed      bool
	readErr     error
	writeErr    error
	signal      chan struct{}
}

var _ rotor.Port = (*Port)(nil)

// NewPort creates an empty scripted port.
func NewPort() *Port {
	return &Port{
		readTimeout: 10 * time.Millisecond,
		signal:      make(chan struct{}, 1),
	}
}

// Opener returns an Opener that always yields p.
func (p *Port) Opener() rotor.Opener {
	return func(string, int) (rotor.Port, error) {
		p.mu.Lock()
		p.closed = false
		p.mu.Unlock()
		return p, nil
	}
}

// Feed queues raw bytes for a single Read.
func (p *Port) Feed(chunks ...string) {
	p.mu.Lock()
	for _, c := range chunks {
		p.feed = append(p.feed, []byte(c))
	}
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// FailReads makes subsequent reads return ErrInjected.
func (p *Port) FailReads() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = ErrInjected
}

// FailWrites makes subsequent writes return ErrInjected.
func (p *Port) FailWrites() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = ErrInjected
}

// Written returns everything written so far.
func (p *Port) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// Closed reports whether Close was called since the last open.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// SetReadTimeout implements rotor.Port.
func (p *Port) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = t
	return nil
}

// Read implements rotor.Port.
func (p *Port) Read(b []byte) (int, error) {
	if n, ok, err := p.tryRead(b); ok {
		return n, err
	}

	p.mu.Lock()
	timeout := p.readTimeout
	p.mu.Unlock()

	select {
	case <-p.signal:
	case <-time.After(timeout):
	}

	n, _, err := p.tryRead(b)
	return n, err
}

func (p *Port) tryRead(b []byte) (int, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, true, io.ErrClosedPipe
	}
	if p.readErr != nil {
		return 0, true, p.readErr
	}
	if len(p.feed) == 0 {
		return 0, false, nil
	}

	chunk := p.feed[0]
	n := copy(b, chunk)
	if n < len(chunk) {
		p.feed[0] = chunk[n:]
	} else {
		p.feed = p.feed[1:]
	}
	return n, true, nil
}

// Write implements rotor.Port.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

// Close implements rotor.Port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
