package rotor

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type op int

const (
	opConnect op = iota
	opDisconnect
	opSend
	opRead
)

type request struct {
	op    op
	port  string
	line  []byte
	reply chan response
}

type response struct {
	line []byte
	err  error
}

// Link is the single owner of a Manager. All port access is funnelled
// through one goroutine started by Run, so reads and writes from the
// telemetry poller, the force feedback bridge and manual dispatch never
// interleave on the wire.
type Link struct {
	mgr    *Manager
	logger *zap.Logger

	reqs    chan request
	done    chan struct{}
	runOnce sync.Once
}

// NewLink creates a Link around mgr. Run must be called before use.
func NewLink(mgr *Manager, logger *zap.Logger) *Link {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Link{
		mgr:    mgr,
		logger: logger,
		reqs:   make(chan request, 16),
		done:   make(chan struct{}),
	}
}

// Run serves requests until ctx is cancelled, then closes the connection.
// Calling Run more than once has no effect.
func (l *Link) Run(ctx context.Context) {
	l.runOnce.Do(func() {
		defer close(l.done)
		defer l.mgr.Disconnect()

		for {
			select {
			case <-ctx.Done():
				l.logger.Debug("Link stopped", zap.Error(ctx.Err()))
				return
			case req := <-l.reqs:
				req.reply <- l.serve(req)
			}
		}
	})
}

// Done is closed once Run has returned.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

func (l *Link) serve(req request) response {
	switch req.op {
	case opConnect:
		return response{err: l.mgr.Connect(req.port)}
	case opDisconnect:
		return response{err: l.mgr.Disconnect()}
	case opSend:
		return response{err: l.mgr.SendLine(req.line)}
	case opRead:
		line, err := l.mgr.ReadLine()
		return response{line: line, err: err}
	}
	return response{}
}

func (l *Link) do(ctx context.Context, req request) response {
	req.reply = make(chan response, 1)

	select {
	case l.reqs <- req:
	case <-ctx.Done():
		return response{err: ctx.Err()}
	case <-l.done:
		return response{err: ErrLinkClosed}
	}

	select {
	case resp := <-req.reply:
		return resp
	case <-ctx.Done():
		return response{err: ctx.Err()}
	case <-l.done:
		return response{err: ErrLinkClosed}
	}
}

// Connect opens the named port.
func (l *Link) Connect(ctx context.Context, port string) error {
	return l.do(ctx, request{op: opConnect, port: port}).err
}

// Disconnect closes the open port, if any.
func (l *Link) Disconnect(ctx context.Context) error {
	return l.do(ctx, request{op: opDisconnect}).err
}

// SendLine writes one line to the peripheral.
func (l *Link) SendLine(ctx context.Context, line []byte) error {
	return l.do(ctx, request{op: opSend, line: line}).err
}

// ReadLine reads at most one line from the peripheral.
func (l *Link) ReadLine(ctx context.Context) ([]byte, error) {
	resp := l.do(ctx, request{op: opRead})
	return resp.line, resp.err
}

// IsConnected returns whether the link holds an open port.
func (l *Link) IsConnected() bool {
	return l.mgr.IsConnected()
}

// PortName returns the open port name.
func (l *Link) PortName() string {
	return l.mgr.PortName()
}
