package framelog

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Event is one recorded bus frame.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Time is when the frame passed the monitor, nanosecond precision.
	Time time.Time `cbor:"1,keyasint"`

	// RunID identifies the monitor run that recorded the event.
	RunID string `cbor:"2,keyasint"`

	// Direction indicates the frame flow relative to the monitor.
	Direction Direction `cbor:"3,keyasint"`

	// ID is the CAN identifier of the frame.
	ID uint32 `cbor:"4,keyasint"`

	// Data is the frame payload.
	Data []byte `cbor:"5,keyasint,omitempty"`

	// Note carries an optional annotation, e.g. a validation outcome.
	Note string `cbor:"6,keyasint,omitempty"`
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionRx indicates a frame received from the bus.
	DirectionRx Direction = 0
	// DirectionTx indicates a frame sent by the monitor.
	DirectionTx Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionRx:
		return "RX"
	case DirectionTx:
		return "TX"
	default:
		return "UNKNOWN"
	}
}

// encMode is the CBOR encoder mode for trace events: deterministic
// encoding with nanosecond-precision timestamps.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for trace events.
var decMode cbor.DecMode

func init() { //nolint:gochecknoinits // Encoder modes are immutable and shared.
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}

	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("framelog: create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}

	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("framelog: create CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}

	return event, nil
}

// NewEncoder creates a CBOR encoder for trace events that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for trace events that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
