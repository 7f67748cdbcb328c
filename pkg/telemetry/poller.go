// Package telemetry turns peripheral angle reports into history samples and
// virtual joystick axis updates.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/itohio/gowheel/pkg/axis"
	"github.com/itohio/gowheel/pkg/history"
	"github.com/itohio/gowheel/pkg/protocol"
	"github.com/itohio/gowheel/pkg/rotor"
	"github.com/itohio/gowheel/pkg/vjoy"
)

// Sample is the most recent decoded angle and the axis value it mapped to.
type Sample struct {
	Angle float64 // Degrees
	Axis  int
}

// Poller reads at most one line per Tick.
type Poller struct {
	ch     rotor.Channel
	angles *history.Buffer[float64]
	mapper axis.Mapper
	axis   vjoy.AxisWriter
	logger *zap.Logger

	latest atomic.Pointer[Sample]
}

// NewPoller creates a Poller. Angles are pushed into angles and written to
// the virtual axis through w.
func NewPoller(ch rotor.Channel, angles *history.Buffer[float64], mapper axis.Mapper, w vjoy.AxisWriter, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		ch:     ch,
		angles: angles,
		mapper: mapper,
		axis:   w,
		logger: logger,
	}
}

// Tick reads one line. A timeout or an unrecognized line is not an error.
// Returned errors only concern this tick.
func (p *Poller) Tick(ctx context.Context) error {
	if !p.ch.IsConnected() {
		return nil
	}

	line, err := p.ch.ReadLine(ctx)
	if err != nil {
		return err
	}
	if line == nil {
		return nil
	}

	msg := protocol.Decode(line)
	if msg.Kind != protocol.Angle {
		p.logger.Debug("Discarding line", zap.ByteString("line", line), zap.Error(protocol.ErrUnrecognized))
		return nil
	}

	s := Sample{Angle: msg.Angle, Axis: p.mapper.Map(msg.Angle)}
	p.angles.Push(s.Angle)
	p.latest.Store(&s)

	if err := p.axis.SetAxis(s.Axis); err != nil {
		return fmt.Errorf("failed to set axis to %d: %w", s.Axis, err)
	}
	return nil
}

// Latest returns the last decoded sample.
func (p *Poller) Latest() (Sample, bool) {
	s := p.latest.Load()
	if s == nil {
		return Sample{}, false
	}
	return *s, true
}
