package control

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/itohio/gowheel/pkg/protocol"
	"github.com/itohio/gowheel/pkg/rotor"
)

// Dispatcher validates resistance commands and sends them to the peripheral.
// Manual input and the force feedback bridge share one Dispatcher; the
// channel serializes their sends.
type Dispatcher struct {
	ch     rotor.Channel
	logger *zap.Logger
	last   atomic.Pointer[Resistance]
}

// NewDispatcher creates a Dispatcher sending through ch.
func NewDispatcher(ch rotor.Channel, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{ch: ch, logger: logger}
}

// Dispatch validates v and sends it.
func (d *Dispatcher) Dispatch(ctx context.Context, v float64) (Resistance, error) {
	r, err := NewResistance(v)
	if err != nil {
		return Resistance{}, err
	}
	return r, d.Send(ctx, r)
}

// DispatchText parses user text and sends it.
func (d *Dispatcher) DispatchText(ctx context.Context, text string) (Resistance, error) {
	r, err := ParseResistance(text)
	if err != nil {
		return Resistance{}, err
	}
	return r, d.Send(ctx, r)
}

// Send writes a validated resistance command.
func (d *Dispatcher) Send(ctx context.Context, r Resistance) error {
	if !d.ch.IsConnected() {
		return ErrNotConnected
	}

	line, err := protocol.EncodeResistance(r.Float64())
	if err != nil {
		return &ValidationError{Input: r.String(), Reason: err.Error()}
	}

	if err := d.ch.SendLine(ctx, line); err != nil {
		return fmt.Errorf("failed to send resistance %s: %w", r, err)
	}

	d.last.Store(&r)
	d.logger.Debug("Resistance sent", zap.Stringer("resistance", r))
	return nil
}

// Connected reports whether commands can currently be sent.
func (d *Dispatcher) Connected() bool {
	return d.ch.IsConnected()
}

// Last returns the last resistance successfully sent.
func (d *Dispatcher) Last() (Resistance, bool) {
	r := d.last.Load()
	if r == nil {
		return Resistance{}, false
	}
	return *r, true
}
