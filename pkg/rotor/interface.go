package rotor

import (
	"context"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is an open byte channel to the peripheral.
// Read must return (0, nil) when the read timeout elapses without data.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a named port at the given baud rate.
type Opener func(name string, baudRate int) (Port, error)

// Channel is the line-oriented access to the peripheral used by the
// telemetry poller and the command dispatcher.
type Channel interface {
	SendLine(ctx context.Context, line []byte) error
	ReadLine(ctx context.Context) ([]byte, error)
	IsConnected() bool
}

// Ensure serial ports satisfy Port.
var _ Port = (serial.Port)(nil)

// Ensure Mock satisfies Port.
var _ Port = (*Mock)(nil)

// Ensure Link satisfies Channel.
var _ Channel = (*Link)(nil)
