// Package ffb derives resistance commands from the game's force feedback.
package ffb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/itohio/gowheel/pkg/control"
	"github.com/itohio/gowheel/pkg/history"
	"github.com/itohio/gowheel/pkg/protocol"
	"github.com/itohio/gowheel/pkg/vjoy"
)

// ErrBridgeUnavailable reports that the force feedback source could not be
// initialized. The bridge stays disabled for the rest of the session.
var ErrBridgeUnavailable = errors.New("force feedback bridge unavailable")

// Force scales a master gain in [0, 100] by gain. Results below deadzone
// (same 0-100 scale) become exactly 0.
func Force(masterGain int, gain, deadzone float64) float64 {
	f := float64(masterGain) * gain
	if math.Abs(f) < deadzone {
		return 0
	}
	return f
}

// Resistance converts a force on the 0-100 scale into a resistance command value.
func Resistance(force float64) float64 {
	return math.Min(protocol.MaxResistance, math.Max(protocol.MinResistance, force))
}

// SourceOpener initializes the force feedback source.
type SourceOpener func() (vjoy.GainSource, error)

// Output is the result of the last bridge tick that dispatched.
type Output struct {
	MasterGain int
	Force      float64 // Adjusted gain as a fraction, 1.0 == full master gain
	Resistance float64
}

// Bridge polls the force feedback source and dispatches resistance while the
// controls are in Auto with force feedback enabled.
// Tick must be called from a single goroutine.
type Bridge struct {
	open        SourceOpener
	state       *control.State
	dispatcher  *control.Dispatcher
	resistances *history.Buffer[float64]
	logger      *zap.Logger

	// OnUnavailable is called once if the source fails to initialize.
	OnUnavailable func(error)

	source   vjoy.GainSource
	disabled atomic.Bool
	latest   atomic.Pointer[Output]
}

// NewBridge creates a Bridge. The source is opened on the first Tick.
func NewBridge(open SourceOpener, state *control.State, d *control.Dispatcher, resistances *history.Buffer[float64], logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		open:        open,
		state:       state,
		dispatcher:  d,
		resistances: resistances,
		logger:      logger,
	}
}

// Tick runs one bridge iteration.
func (b *Bridge) Tick(ctx context.Context) error {
	if b.disabled.Load() {
		return nil
	}
	if b.source == nil && !b.init() {
		return nil
	}

	c := b.state.Load()
	if c.Mode != control.Auto || !c.Enabled || !b.dispatcher.Connected() {
		return nil
	}

	g, err := b.source.MasterGain()
	if err != nil {
		return fmt.Errorf("failed to read master gain: %w", err)
	}

	force := Force(g, c.Gain, c.Deadzone)
	r, err := control.NewResistance(Resistance(force))
	if err != nil {
		return err
	}

	b.resistances.Push(r.Float64())
	b.latest.Store(&Output{
		MasterGain: g,
		Force:      force / vjoy.MaxGain,
		Resistance: r.Float64(),
	})

	return b.dispatcher.Send(ctx, r)
}

func (b *Bridge) init() bool {
	src, err := b.open()
	if err == nil && src == nil {
		err = vjoy.ErrUnavailable
	}
	if err != nil {
		b.disabled.Store(true)
		err = fmt.Errorf("%w: %w", ErrBridgeUnavailable, err)
		b.logger.Warn("Force feedback disabled", zap.Error(err))
		if b.OnUnavailable != nil {
			b.OnUnavailable(err)
		}
		return false
	}
	b.source = src
	return true
}

// Disabled reports whether the bridge gave up after a failed initialization.
func (b *Bridge) Disabled() bool {
	return b.disabled.Load()
}

// Latest returns the output of the last dispatching tick.
func (b *Bridge) Latest() (Output, bool) {
	o := b.latest.Load()
	if o == nil {
		return Output{}, false
	}
	return *o, true
}
