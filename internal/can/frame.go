// Package can provides the CAN-FD frame type and the bus drivers that move
// frames between the vehicle bus and the telemetry layer.
//
// Drivers implement the Bus interface: SocketCAN on Linux, slcan over a
// serial adapter, and an in-memory loopback for tests and simulation.
package can

import "fmt"

// MaxDataLen is the largest CAN-FD payload.
const MaxDataLen = 64

// Identifier limits after standard/extended normalization.
const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF
)

// fdLengths is the set of payload sizes a CAN-FD frame can carry on the wire.
var fdLengths = [...]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// ValidFDLength reports whether n is a legal CAN-FD payload size.
func ValidFDLength(n uint8) bool {
	for _, l := range fdLengths {
		if n == l {
			return true
		}
	}
	return false
}

// Frame represents one CAN 2.0 or CAN-FD frame.
type Frame struct {
	ID       uint32 // 11-bit (standard) or 29-bit (extended)
	Extended bool
	Length   uint8 // 0..64
	Data     [MaxDataLen]byte
}

// NewFrame builds a frame from id and payload bytes. Identifiers above the
// 11-bit range are marked extended.
func NewFrame(id uint32, data []byte) Frame {
	f := Frame{ID: id, Extended: id > MaxStandardID}
	f.Length = uint8(len(data))
	copy(f.Data[:], data)
	return f
}

// Payload returns the valid portion of the data buffer.
func (f Frame) Payload() []byte {
	if f.Length > MaxDataLen {
		return f.Data[:]
	}
	return f.Data[:f.Length]
}

// Validate returns an error if the identifier or length is out of range.
func (f Frame) Validate() error {
	if f.Length > MaxDataLen {
		return fmt.Errorf("can: invalid data length %d", f.Length)
	}
	max := uint32(MaxStandardID)
	if f.Extended {
		max = MaxExtendedID
	}
	if f.ID > max {
		return fmt.Errorf("can: identifier 0x%X out of range", f.ID)
	}
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("0x%03X [%d] % X", f.ID, f.Length, f.Payload())
}
