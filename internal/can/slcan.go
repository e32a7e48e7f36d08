package can

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// dlcLengths maps an slcan/CAN-FD DLC code (0..15) to a payload length.
var dlcLengths = [16]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

func dlcForLength(n uint8) (int, bool) {
	for code, l := range dlcLengths {
		if l == n {
			return code, true
		}
	}
	return 0, false
}

// SLCAN speaks the Lawicel slcan ASCII protocol over a serial port, for USB
// CAN adapters. Classic frames use the t/T commands, FD frames the d/D
// extension with a one-digit DLC code.
type SLCAN struct {
	port   serial.Port
	frames chan Frame
	errs   chan error

	mu     sync.Mutex
	closed bool
}

// SLCANOptions configures the serial link and the adapter.
type SLCANOptions struct {
	BaudRate    int    // serial line speed, default 115200
	BitrateCode string // slcan S command argument ("0".."8"), empty to skip
	Depth       int    // receive buffer depth
}

// OpenSLCAN opens the serial port, puts the adapter on the bus and starts
// the receive loop.
func OpenSLCAN(portName string, opts SLCANOptions) (*SLCAN, error) {
	if opts.BaudRate == 0 {
		opts.BaudRate = 115200
	}
	if opts.Depth < 1 {
		opts.Depth = 1
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	s := newSLCAN(port, opts.Depth)
	if err := s.setup(opts.BitrateCode); err != nil {
		port.Close()
		return nil, err
	}
	go s.readLoop()
	return s, nil
}

// newSLCAN wraps an already-open port. Split out so tests can drive the
// protocol through a mock port.
func newSLCAN(port serial.Port, depth int) *SLCAN {
	return &SLCAN{
		port:   port,
		frames: make(chan Frame, depth),
		errs:   make(chan error, 10),
	}
}

// setup closes any stale channel, optionally programs the bitrate and opens
// the adapter's CAN channel.
func (s *SLCAN) setup(bitrateCode string) error {
	if _, err := s.port.Write([]byte("C\r")); err != nil {
		return fmt.Errorf("failed to reset adapter: %w", err)
	}
	if bitrateCode != "" {
		if _, err := s.port.Write([]byte("S" + bitrateCode + "\r")); err != nil {
			return fmt.Errorf("failed to set bitrate: %w", err)
		}
	}
	if _, err := s.port.Write([]byte("O\r")); err != nil {
		return fmt.Errorf("failed to open CAN channel: %w", err)
	}
	return nil
}

// Frames returns the channel for receiving frames.
func (s *SLCAN) Frames() <-chan Frame { return s.frames }

// Errors returns the channel for receive faults.
func (s *SLCAN) Errors() <-chan error { return s.errs }

func (s *SLCAN) readLoop() {
	scan := bufio.NewScanner(s.port)
	scan.Split(scanCR)

	for scan.Scan() {
		line := scan.Text()
		if line == "" || line == "\a" {
			continue
		}
		switch line[0] {
		case 't', 'T', 'd', 'D':
			frame, err := ParseSLCANLine(line)
			if err != nil {
				s.reportErr(err)
				continue
			}
			select {
			case s.frames <- frame:
			default:
				s.reportErr(fmt.Errorf("receive buffer full, dropping frame 0x%03X", frame.ID))
			}
		case 'r', 'R':
			// Remote requests carry no telemetry.
		default:
			// Adapter status responses (z, Z, version strings).
		}
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		if err := scan.Err(); err != nil {
			s.reportErr(fmt.Errorf("serial read error: %w", err))
		}
		s.mu.Lock()
		if !s.closed {
			s.closed = true
			close(s.frames)
			close(s.errs)
		}
		s.mu.Unlock()
	}
}

func (s *SLCAN) reportErr(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Send transmits one frame through the adapter.
func (s *SLCAN) Send(f Frame) error {
	line, err := MarshalSLCANFrame(f)
	if err != nil {
		return err
	}
	if _, err := s.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close takes the adapter off the bus and closes the port.
func (s *SLCAN) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.port.Write([]byte("C\r"))
	return s.port.Close()
}

// scanCR splits the serial stream on carriage returns, the slcan line
// terminator.
func scanCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ParseSLCANLine decodes a single slcan frame line (t/T for classic,
// d/D for FD; uppercase variants carry 29-bit identifiers).
func ParseSLCANLine(line string) (Frame, error) {
	if len(line) < 2 {
		return Frame{}, fmt.Errorf("slcan: short line %q", line)
	}

	cmd := line[0]
	extended := cmd == 'T' || cmd == 'D'
	fd := cmd == 'd' || cmd == 'D'

	idDigits := 3
	if extended {
		idDigits = 8
	}
	if len(line) < 1+idDigits+1 {
		return Frame{}, fmt.Errorf("slcan: short line %q", line)
	}

	id, err := strconv.ParseUint(line[1:1+idDigits], 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("slcan: bad identifier in %q: %w", line, err)
	}

	code, err := strconv.ParseUint(line[1+idDigits:2+idDigits], 16, 8)
	if err != nil {
		return Frame{}, fmt.Errorf("slcan: bad length in %q: %w", line, err)
	}
	var length uint8
	if fd {
		length = dlcLengths[code]
	} else {
		if code > 8 {
			return Frame{}, fmt.Errorf("slcan: classic frame length %d out of range", code)
		}
		length = uint8(code)
	}

	hexData := line[2+idDigits:]
	if len(hexData) < int(length)*2 {
		return Frame{}, fmt.Errorf("slcan: truncated data in %q", line)
	}

	f := Frame{ID: uint32(id), Extended: extended, Length: length}
	for i := 0; i < int(length); i++ {
		b, err := strconv.ParseUint(hexData[i*2:i*2+2], 16, 8)
		if err != nil {
			return Frame{}, fmt.Errorf("slcan: bad data byte in %q: %w", line, err)
		}
		f.Data[i] = byte(b)
	}
	return f, nil
}

// MarshalSLCANFrame encodes a frame as an slcan line including the trailing
// carriage return.
func MarshalSLCANFrame(f Frame) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	fd := f.Length > 8
	var cmd byte
	switch {
	case fd && f.Extended:
		cmd = 'D'
	case fd:
		cmd = 'd'
	case f.Extended:
		cmd = 'T'
	default:
		cmd = 't'
	}

	var b strings.Builder
	b.WriteByte(cmd)
	if f.Extended {
		fmt.Fprintf(&b, "%08X", f.ID)
	} else {
		fmt.Fprintf(&b, "%03X", f.ID)
	}

	if fd {
		code, ok := dlcForLength(f.Length)
		if !ok {
			return "", fmt.Errorf("slcan: length %d is not a CAN-FD payload size", f.Length)
		}
		fmt.Fprintf(&b, "%X", code)
	} else {
		fmt.Fprintf(&b, "%d", f.Length)
	}

	for _, d := range f.Payload() {
		fmt.Fprintf(&b, "%02X", d)
	}
	b.WriteByte('\r')
	return b.String(), nil
}
