package rotor

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyConnected is wrapped by ConnectionError when a second
	// connection is attempted while one is open.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrPortBusy is wrapped by ConnectionError when the port is claimed by another process.
	ErrPortBusy = errors.New("port busy")
	// ErrNotConnected is returned by I/O operations while disconnected.
	ErrNotConnected = errors.New("not connected")
	// ErrLinkClosed is returned once the link owner has stopped.
	ErrLinkClosed = errors.New("link closed")
)

// ConnectionError reports a failure to open a port. The connection state is unchanged.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IoError reports a single failed read or write. It is never fatal.
type IoError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("serial %s failed: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }
