// Package session wires the peripheral link, the telemetry poller and the
// force feedback bridge into one explicitly owned unit.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itohio/gowheel/pkg/axis"
	"github.com/itohio/gowheel/pkg/config"
	"github.com/itohio/gowheel/pkg/control"
	"github.com/itohio/gowheel/pkg/ffb"
	"github.com/itohio/gowheel/pkg/history"
	"github.com/itohio/gowheel/pkg/logging"
	"github.com/itohio/gowheel/pkg/rotor"
	"github.com/itohio/gowheel/pkg/schedule"
	"github.com/itohio/gowheel/pkg/telemetry"
	"github.com/itohio/gowheel/pkg/vjoy"
)

// ErrNotStarted is returned by operations that need a running session.
var ErrNotStarted = errors.New("session not started")

// Options supplies the session's external collaborators.
type Options struct {
	Opener  rotor.Opener     // Defaults to rotor.OpenSerial
	Axis    vjoy.AxisWriter  // Defaults to vjoy.Discard
	OpenFFB ffb.SourceOpener // Nil disables force feedback
	Logger  *zap.Logger

	// OnBridgeUnavailable is called once if force feedback cannot start.
	OnBridgeUnavailable func(error)
}

// Snapshot is the state exposed to the UI and the remote API.
type Snapshot struct {
	SessionID string           `json:"session_id"`
	Port      string           `json:"port,omitempty"`
	Connected bool             `json:"connected"`
	Controls  control.Controls `json:"-"`
	Mode      control.Mode     `json:"mode"`
	Enabled   bool             `json:"ffb_enabled"`
	Gain      float64          `json:"ffb_gain"`
	Deadzone  float64          `json:"ffb_deadzone"`

	Angle    float64 `json:"angle"`
	HasAngle bool    `json:"has_angle"`
	Axis     int     `json:"axis"`

	Resistance    float64 `json:"resistance"` // Last sent resistance
	HasResistance bool    `json:"has_resistance"`
	Force         float64 `json:"force"` // Last adjusted force feedback, 1.0 == full gain
	MasterGain    int     `json:"master_gain"`

	BridgeDisabled bool `json:"bridge_disabled"`
}

// History holds copies of both history buffers, oldest first.
type History struct {
	Angles      []float64 `json:"angles"`
	Resistances []float64 `json:"resistances"`
}

// Session owns one peripheral connection and everything driven by it.
type Session struct {
	id     string
	cfg    *config.Config
	logger *zap.Logger

	link        *rotor.Link
	state       *control.State
	dispatcher  *control.Dispatcher
	poller      *telemetry.Poller
	bridge      *ffb.Bridge
	angles      *history.Buffer[float64]
	resistances *history.Buffer[float64]

	pollTask   *schedule.Recurring
	bridgeTask *schedule.Recurring

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool

	callbacks []func(Snapshot)
	cbMu      sync.RWMutex
}

// New creates a stopped session.
func New(cfg *config.Config, opts Options) *Session {
	id := uuid.New().String()
	logger := logging.ForSession(opts.Logger, id)

	if opts.Opener == nil {
		opts.Opener = rotor.OpenSerial
	}
	if opts.Axis == nil {
		opts.Axis = vjoy.Discard{Scale: cfg.Axis.FullScale}
	}
	if opts.OpenFFB == nil {
		opts.OpenFFB = func() (vjoy.GainSource, error) { return nil, vjoy.ErrUnavailable }
	}

	s := &Session{
		id:          id,
		cfg:         cfg,
		logger:      logger,
		state:       control.NewState(control.DefaultControls(&cfg.ForceFeedback)),
		angles:      history.New[float64](cfg.Telemetry.HistorySize),
		resistances: history.New[float64](cfg.Telemetry.HistorySize),
	}

	mgr := rotor.NewManager(opts.Opener, cfg.Serial.BaudRate, cfg.Serial.ReadTimeout, logging.Component(logger, "link"))
	s.link = rotor.NewLink(mgr, logging.Component(logger, "link"))
	s.dispatcher = control.NewDispatcher(s.link, logging.Component(logger, "dispatcher"))

	mapper := axis.New(opts.Axis.FullScale(), cfg.Axis.HalfDomain)
	s.poller = telemetry.NewPoller(s.link, s.angles, mapper, opts.Axis, logging.Component(logger, "poller"))

	s.bridge = ffb.NewBridge(opts.OpenFFB, s.state, s.dispatcher, s.resistances, logging.Component(logger, "bridge"))
	s.bridge.OnUnavailable = opts.OnBridgeUnavailable

	s.pollTask = schedule.New("poller", cfg.Telemetry.PollInterval, s.pollTick, logger)
	s.bridgeTask = schedule.New("bridge", cfg.ForceFeedback.PollInterval, s.bridge.Tick, logger)

	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Start launches the link owner, the telemetry poller and the bridge.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("session %s already started", s.id)
	}

	ctx, cancel := context.WithCancel(ctx)
	go s.link.Run(ctx)

	if err := s.pollTask.Start(ctx); err != nil {
		cancel()
		return err
	}
	if err := s.bridgeTask.Start(ctx); err != nil {
		s.pollTask.Stop()
		cancel()
		return err
	}

	s.cancel = cancel
	s.started = true
	s.logger.Info("Session started")
	return nil
}

// Stop stops all tasks and closes the connection. It waits for every
// goroutine started by Start.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	s.pollTask.Stop()
	s.bridgeTask.Stop()
	cancel()
	<-s.link.Done()
	s.logger.Info("Session stopped")
}

// Connect opens the named port.
func (s *Session) Connect(ctx context.Context, port string) error {
	if err := s.running(); err != nil {
		return err
	}
	if err := s.link.Connect(ctx, port); err != nil {
		return err
	}
	s.notify()
	return nil
}

// Disconnect closes the port. Disconnecting twice is not an error.
func (s *Session) Disconnect(ctx context.Context) error {
	if err := s.running(); err != nil {
		return err
	}
	if err := s.link.Disconnect(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// DispatchText sends a user-entered resistance. It is rejected in Auto mode.
func (s *Session) DispatchText(ctx context.Context, text string) (control.Resistance, error) {
	if err := s.running(); err != nil {
		return control.Resistance{}, err
	}
	if s.state.Load().Mode != control.Manual {
		return control.Resistance{}, control.ErrWrongMode
	}

	r, err := s.dispatcher.DispatchText(ctx, text)
	if err != nil {
		return r, err
	}
	s.resistances.Push(r.Float64())
	s.notify()
	return r, nil
}

// Controls returns the current control snapshot.
func (s *Session) Controls() control.Controls {
	return s.state.Load()
}

// SetMode switches between manual and automatic resistance.
func (s *Session) SetMode(m control.Mode) error {
	if err := s.state.SetMode(m); err != nil {
		return err
	}
	s.logger.Info("Mode changed", zap.Stringer("mode", m))
	return nil
}

// SetEnabled toggles force feedback.
func (s *Session) SetEnabled(enabled bool) error {
	return s.state.SetEnabled(enabled)
}

// SetTuning changes force feedback gain and deadzone.
func (s *Session) SetTuning(gain, deadzone float64) error {
	return s.state.SetTuning(gain, deadzone)
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	c := s.state.Load()
	snap := Snapshot{
		SessionID:      s.id,
		Port:           s.link.PortName(),
		Connected:      s.link.IsConnected(),
		Controls:       c,
		Mode:           c.Mode,
		Enabled:        c.Enabled,
		Gain:           c.Gain,
		Deadzone:       c.Deadzone,
		BridgeDisabled: s.bridge.Disabled(),
	}
	if sample, ok := s.poller.Latest(); ok {
		snap.Angle = sample.Angle
		snap.Axis = sample.Axis
		snap.HasAngle = true
	}
	if r, ok := s.dispatcher.Last(); ok {
		snap.Resistance = r.Float64()
		snap.HasResistance = true
	}
	if out, ok := s.bridge.Latest(); ok {
		snap.Force = out.Force
		snap.MasterGain = out.MasterGain
	}
	return snap
}

// History returns copies of the angle and resistance histories.
func (s *Session) History() History {
	return History{
		Angles:      s.angles.Values(),
		Resistances: s.resistances.Values(),
	}
}

// Angles returns the angle history buffer.
func (s *Session) Angles() *history.Buffer[float64] {
	return s.angles
}

// Resistances returns the resistance history buffer.
func (s *Session) Resistances() *history.Buffer[float64] {
	return s.resistances
}

// OnUpdate registers a callback invoked after each telemetry tick and after
// connection or manual dispatch changes. Callbacks run on the calling
// goroutine and must not block.
func (s *Session) OnUpdate(callback func(Snapshot)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

func (s *Session) pollTick(ctx context.Context) error {
	err := s.poller.Tick(ctx)
	s.notify()
	return err
}

func (s *Session) notify() {
	s.cbMu.RLock()
	callbacks := make([]func(Snapshot), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.cbMu.RUnlock()

	if len(callbacks) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, cb := range callbacks {
		cb(snap)
	}
}

func (s *Session) running() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return ErrNotStarted
	}
	return nil
}
