// Package codec converts between CAN payload bytes and telemetry records.
// The wire format is big-endian, fixed-width two's-complement integers in
// field order, with no padding and no length prefix; the length is implied
// by the catalog entry.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when fewer payload bytes are supplied than
	// the record's fields require.
	ErrTruncated = errors.New("codec: truncated input")

	// ErrBufferTooSmall is returned when an encode target cannot hold the
	// descriptor's declared length. Callers size buffers from the catalog,
	// so hitting this is a local programming bug, not a bus condition.
	ErrBufferTooSmall = errors.New("codec: buffer too small")
)

// Decode fills rec (a pointer to a fixed-width record struct) from data.
// Bytes beyond the record's fields are ignored; descriptors may reserve
// wire length exceeding the fields currently defined.
func Decode(data []byte, rec any) error {
	need := binary.Size(rec)
	if need < 0 {
		return fmt.Errorf("codec: %T is not a fixed-width record", rec)
	}
	if len(data) < need {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrTruncated, need, len(data))
	}
	if _, err := binary.Decode(data[:need], binary.BigEndian, rec); err != nil {
		return fmt.Errorf("codec: decode %T: %w", rec, err)
	}
	return nil
}

// Encode writes rec into dst, producing exactly length bytes: the record's
// fields in big-endian order followed by zeroed reserved bytes. It returns
// the number of bytes written.
func Encode(rec any, length uint8, dst []byte) (int, error) {
	need := binary.Size(rec)
	if need < 0 {
		return 0, fmt.Errorf("codec: %T is not a fixed-width record", rec)
	}
	if need > int(length) {
		return 0, fmt.Errorf("codec: %T needs %d bytes, declared length is %d", rec, need, length)
	}
	if len(dst) < int(length) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, length, len(dst))
	}
	if _, err := binary.Encode(dst, binary.BigEndian, rec); err != nil {
		return 0, fmt.Errorf("codec: encode %T: %w", rec, err)
	}
	for i := need; i < int(length); i++ {
		dst[i] = 0
	}
	return int(length), nil
}
