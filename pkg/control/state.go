package control

import (
	"sync/atomic"

	"github.com/itohio/gowheel/pkg/config"
)

// Controls is one consistent set of user controls. Values are never
// modified once published; a change publishes a new Controls.
type Controls struct {
	Mode     Mode
	Enabled  bool    // Force feedback enabled
	Gain     float64 // Force feedback gain multiplier
	Deadzone float64 // On the 0-100 scale
}

// DefaultControls returns the controls described by cfg.
func DefaultControls(cfg *config.ForceFeedbackConfig) Controls {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		mode = Manual
	}
	return Controls{
		Mode:     mode,
		Enabled:  cfg.Enabled,
		Gain:     cfg.Gain,
		Deadzone: cfg.Deadzone,
	}
}

// State publishes Controls atomically. Readers always see a whole snapshot:
// checking Mode and Enabled from one Load never mixes two updates.
type State struct {
	p atomic.Pointer[Controls]
}

// NewState creates a State holding c.
func NewState(c Controls) *State {
	s := &State{}
	s.p.Store(&c)
	return s
}

// Load returns the current snapshot.
func (s *State) Load() Controls {
	return *s.p.Load()
}

// Store validates and publishes c.
func (s *State) Store(c Controls) error {
	if err := validate(c); err != nil {
		return err
	}
	s.p.Store(&c)
	return nil
}

// SetMode switches the control mode.
func (s *State) SetMode(m Mode) error {
	return s.update(func(c *Controls) { c.Mode = m })
}

// SetEnabled toggles force feedback.
func (s *State) SetEnabled(enabled bool) error {
	return s.update(func(c *Controls) { c.Enabled = enabled })
}

// SetTuning changes the force feedback gain and deadzone.
func (s *State) SetTuning(gain, deadzone float64) error {
	return s.update(func(c *Controls) {
		c.Gain = gain
		c.Deadzone = deadzone
	})
}

// update applies fn to a copy of the current snapshot and publishes it,
// retrying if another writer got in first.
func (s *State) update(fn func(*Controls)) error {
	for {
		old := s.p.Load()
		next := *old
		fn(&next)
		if err := validate(next); err != nil {
			return err
		}
		if s.p.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

func validate(c Controls) error {
	if c.Mode != Manual && c.Mode != Auto {
		return &ValidationError{Input: c.Mode.String(), Reason: "unknown mode"}
	}
	if err := config.ValidateTuning(c.Gain, c.Deadzone); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}
