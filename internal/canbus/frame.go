package canbus

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Frame represents a classical CAN (2.0A/2.0B) frame.
//
// Standard (11-bit) and extended (29-bit) identifiers, data frames and
// remote transmission requests are supported. CAN FD fields are not.
type Frame struct {
	// ID is the frame identifier, 11 bits standard or 29 bits extended.
	ID uint32
	// Extended marks a 29-bit identifier.
	Extended bool
	// RTR marks a remote transmission request.
	RTR bool
	// Len is the number of valid bytes in Data, 0 to 8.
	Len uint8
	// Data holds the frame payload.
	Data [8]byte
}

// Identifier limits.
const (
	// MaxStandardID is the largest 11-bit CAN identifier.
	MaxStandardID uint32 = 0x7FF
	// MaxExtendedID is the largest 29-bit CAN identifier.
	MaxExtendedID uint32 = 0x1FFFFFFF
)

// frameWireSize is the size of the Linux can_frame structure.
const frameWireSize = 16

// can_id flag bits of the Linux can_frame layout.
const (
	canEffFlag uint32 = 0x80000000
	canRtrFlag uint32 = 0x40000000
)

var (
	// ErrInvalidID is returned for identifiers exceeding their bit width.
	ErrInvalidID = errors.New("canbus: invalid identifier")
	// ErrInvalidLen is returned for payload lengths above 8 bytes.
	ErrInvalidLen = errors.New("canbus: invalid data length")
)

// NewFrame builds a data frame from an identifier and payload. Identifiers
// above the standard 11-bit range produce an extended frame.
func NewFrame(id uint32, data []byte) (Frame, error) {
	if len(data) > len(Frame{}.Data) {
		return Frame{}, ErrInvalidLen
	}

	f := Frame{
		ID:       id,
		Extended: id > MaxStandardID,
		Len:      uint8(len(data)),
	}
	copy(f.Data[:], data)

	if err := f.Validate(); err != nil {
		return Frame{}, err
	}

	return f, nil
}

// Validate returns an error if the frame is not valid.
func (f Frame) Validate() error {
	if f.Len > uint8(len(f.Data)) {
		return ErrInvalidLen
	}

	limit := MaxStandardID
	if f.Extended {
		limit = MaxExtendedID
	}

	if f.ID > limit {
		return ErrInvalidID
	}

	return nil
}

// String renders the frame in candump notation, e.g. "180#465BA2".
func (f Frame) String() string {
	id := fmt.Sprintf("%03X", f.ID)
	if f.Extended {
		id = fmt.Sprintf("%08X", f.ID)
	}

	if f.RTR {
		return id + "#R"
	}

	return id + "#" + strings.ToUpper(hex.EncodeToString(f.Data[:f.Len]))
}

// MarshalBinary encodes the frame in the Linux SocketCAN can_frame layout
// (16 bytes, little-endian):
//
//	0..3  can_id with the EFF/RTR flag bits
//	4     data length code
//	5..7  padding, zero
//	8..15 data bytes
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}

	if f.RTR {
		id |= canRtrFlag
	}

	buf := make([]byte, frameWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:16], f.Data[:])

	return buf, nil
}

// UnmarshalBinary decodes a frame from the Linux SocketCAN can_frame layout.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < frameWireSize {
		return fmt.Errorf("canbus: need %d bytes, got %d", frameWireSize, len(data))
	}

	id := binary.LittleEndian.Uint32(data[0:4])

	f.Extended = id&canEffFlag != 0
	f.RTR = id&canRtrFlag != 0

	if f.Extended {
		f.ID = id & MaxExtendedID
	} else {
		f.ID = id & MaxStandardID
	}

	f.Len = data[4]
	copy(f.Data[:], data[8:16])

	return f.Validate()
}
