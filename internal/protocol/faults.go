package protocol

import "strings"

// FaultBits packs the monitor fault flags into one byte for transmission
// in the heartbeat payload.
type FaultBits uint8

const (
	// FaultTimeout signals that no valid command frame arrived within the
	// reception-timeout window.
	FaultTimeout FaultBits = 1 << iota
	// FaultChecksumFail signals a recent command frame with a bad checksum.
	FaultChecksumFail
	// FaultRange signals a recent command level outside the actuator range.
	FaultRange
	// FaultBusOff is reserved for bus-off reporting. The monitor never
	// sets it; recovery from bus-off is not handled here.
	FaultBusOff
)

// Has reports whether all bits of mask are asserted.
func (f FaultBits) Has(mask FaultBits) bool {
	return f&mask == mask
}

// String lists the asserted flags, or "none".
func (f FaultBits) String() string {
	if f == 0 {
		return "none"
	}

	names := make([]string, 0, 4)

	if f.Has(FaultTimeout) {
		names = append(names, "timeout")
	}

	if f.Has(FaultChecksumFail) {
		names = append(names, "checksum")
	}

	if f.Has(FaultRange) {
		names = append(names, "range")
	}

	if f.Has(FaultBusOff) {
		names = append(names, "busoff")
	}

	return strings.Join(names, "|")
}
