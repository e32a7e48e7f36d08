//go:build linux

package can

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Wire sizes of the kernel can_frame / canfd_frame structs.
const (
	classicFrameSize = 16
	fdFrameSize      = 72
)

// SocketCAN reads and writes CAN-FD frames on a Linux SocketCAN interface.
//
// Received frames are delivered on a buffered channel sized to the configured
// receive depth; the ingress pump drains at most that many frames per wake.
type SocketCAN struct {
	socket int
	ifname string
	frames chan Frame
	errs   chan error

	mu     sync.Mutex
	closed bool
}

// OpenSocketCAN binds a raw CAN socket to the named interface (e.g. "can0"),
// enables CAN-FD frame delivery and starts the receive loop.
func OpenSocketCAN(ifname string, depth int) (*SocketCAN, error) {
	if depth < 1 {
		depth = 1
	}

	socket, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("failed to create CAN socket: %w", err)
	}

	ifreq, err := unix.NewIfreq(ifname)
	if err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("failed to create ifreq: %w", err)
	}
	if err := unix.IoctlIfreq(socket, unix.SIOCGIFINDEX, ifreq); err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("failed to get interface index: %w", err)
	}

	// Accept FD frames alongside classic ones.
	if err := unix.SetsockoptInt(socket, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 1); err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("failed to enable CAN-FD frames: %w", err)
	}

	addr := &unix.SockaddrCAN{Ifindex: int(ifreq.Uint32())}
	if err := unix.Bind(socket, addr); err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("failed to bind socket: %w", err)
	}

	s := &SocketCAN{
		socket: socket,
		ifname: ifname,
		frames: make(chan Frame, depth),
		errs:   make(chan error, 10),
	}
	go s.readLoop()
	return s, nil
}

// SetFilter installs exact-match kernel filters for the given identifiers.
func (s *SocketCAN) SetFilter(ids []uint32) error {
	if len(ids) == 0 {
		return nil
	}
	filters := make([]unix.CanFilter, len(ids))
	for i, id := range ids {
		filters[i] = unix.CanFilter{Id: id, Mask: unix.CAN_EFF_MASK}
	}
	if err := unix.SetsockoptCanRawFilter(s.socket, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters); err != nil {
		return fmt.Errorf("failed to set filter: %w", err)
	}
	return nil
}

// Frames returns the channel for receiving frames.
func (s *SocketCAN) Frames() <-chan Frame { return s.frames }

// Errors returns the channel for receive faults.
func (s *SocketCAN) Errors() <-chan error { return s.errs }

// readLoop continuously reads frames from the socket.
func (s *SocketCAN) readLoop() {
	buf := make([]byte, fdFrameSize)

	for {
		n, err := unix.Read(s.socket, buf)
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			s.reportErr(fmt.Errorf("read error: %w", err))
			continue
		}

		frame, err := parseKernelFrame(buf[:n])
		if err != nil {
			s.reportErr(err)
			continue
		}

		select {
		case s.frames <- frame:
		default:
			s.reportErr(fmt.Errorf("receive buffer full, dropping frame 0x%03X", frame.ID))
		}
	}
}

func (s *SocketCAN) reportErr(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Send writes one frame. Payloads up to 8 bytes go out as classic CAN,
// larger ones as CAN-FD.
func (s *SocketCAN) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	id := f.ID
	if f.Extended {
		id |= unix.CAN_EFF_FLAG
	}

	size := classicFrameSize
	if f.Length > 8 {
		if !ValidFDLength(f.Length) {
			return fmt.Errorf("can: length %d is not a CAN-FD payload size", f.Length)
		}
		size = fdFrameSize
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Length
	copy(buf[8:], f.Payload())

	if _, err := unix.Write(s.socket, buf); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

// Close shuts down the receive loop and closes the socket.
func (s *SocketCAN) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return unix.Close(s.socket)
}

// parseKernelFrame decodes the kernel can_frame (16 bytes) or canfd_frame
// (72 bytes) layout: little-endian id with EFF/RTR flags, length byte,
// padding, then data.
func parseKernelFrame(buf []byte) (Frame, error) {
	if len(buf) != classicFrameSize && len(buf) != fdFrameSize {
		return Frame{}, fmt.Errorf("incomplete CAN frame received: %d bytes", len(buf))
	}

	id := binary.LittleEndian.Uint32(buf[0:4])
	f := Frame{
		Extended: id&unix.CAN_EFF_FLAG != 0,
		Length:   buf[4],
	}
	if f.Extended {
		f.ID = id & unix.CAN_EFF_MASK
	} else {
		f.ID = id & unix.CAN_SFF_MASK
	}
	if int(f.Length) > len(buf)-8 {
		return Frame{}, fmt.Errorf("frame length %d exceeds buffer", f.Length)
	}
	copy(f.Data[:], buf[8:8+int(f.Length)])
	return f, nil
}
