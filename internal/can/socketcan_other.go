//go:build !linux

package can

import "errors"

// SocketCAN is only available on Linux.
type SocketCAN struct{}

var errNoSocketCAN = errors.New("can: socketcan requires linux")

func OpenSocketCAN(ifname string, depth int) (*SocketCAN, error) { return nil, errNoSocketCAN }

func (s *SocketCAN) SetFilter(ids []uint32) error { return errNoSocketCAN }
func (s *SocketCAN) Frames() <-chan Frame         { return nil }
func (s *SocketCAN) Errors() <-chan error         { return nil }
func (s *SocketCAN) Send(Frame) error             { return errNoSocketCAN }
func (s *SocketCAN) Close() error                 { return nil }
