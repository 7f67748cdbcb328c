package control

import (
	"errors"
	"fmt"

	"github.com/itohio/gowheel/pkg/rotor"
)

var (
	// ErrNotConnected is returned when a command is dispatched while disconnected.
	ErrNotConnected = rotor.ErrNotConnected
	// ErrWrongMode is returned when a manual command is issued in Auto mode.
	ErrWrongMode = errors.New("manual resistance disabled in auto mode")
)

// ValidationError reports input that cannot become a resistance command
// or a control setting. Nothing is sent.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}
