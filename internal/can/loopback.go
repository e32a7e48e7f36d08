package can

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by bus operations after Close.
var ErrClosed = errors.New("can: bus closed")

// Loopback is an in-memory Bus for tests and bench simulation. Frames sent
// with Send are delivered to the receive channel, so a test can stand in for
// the rest of the bus.
type Loopback struct {
	frames chan Frame
	errs   chan error

	mu     sync.Mutex
	closed bool
}

// NewLoopback creates a loopback bus with the given receive buffer depth.
func NewLoopback(depth int) *Loopback {
	if depth < 1 {
		depth = 1
	}
	return &Loopback{
		frames: make(chan Frame, depth),
		errs:   make(chan error, 8),
	}
}

// Frames returns the receive channel.
func (l *Loopback) Frames() <-chan Frame { return l.frames }

// Errors returns the driver fault channel.
func (l *Loopback) Errors() <-chan error { return l.errs }

// Send delivers a frame into the receive buffer. A full buffer reports the
// frame as dropped, mirroring controller FIFO overrun.
func (l *Loopback) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.frames <- f:
		return nil
	default:
		err := fmt.Errorf("can: receive buffer full, dropping frame 0x%03X", f.ID)
		select {
		case l.errs <- err:
		default:
		}
		return err
	}
}

// Close closes both channels. Buffered frames remain readable.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.frames)
	close(l.errs)
	return nil
}
