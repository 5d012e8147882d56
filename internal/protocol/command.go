package protocol

const (
	// MaxLevel is the highest meaningful actuator level in percent.
	// Raw levels above it are clamped and flagged as a range fault.
	MaxLevel = 100

	// CounterMask keeps the low four bits of the rolling counter.
	CounterMask = 0x0F

	// commandMinLen is the shortest decodable command payload.
	commandMinLen = 3
)

// Command is one decoded actuator command. It lives for the duration of a
// single validation pass and is never stored.
type Command struct {
	// Level is the raw requested actuator level, 0..255.
	Level uint8
	// Counter is the 4-bit rolling counter.
	Counter uint8
	// Checksum protects Level and Counter.
	Checksum uint8
}

// ParseCommand decodes a command payload: byte0 level, byte1 low nibble
// rolling counter, byte2 checksum. Bytes beyond the third are ignored.
// Shorter payloads yield ok=false; that is not an error, frames of
// unrelated shape share the bus.
func ParseCommand(payload []byte) (Command, bool) {
	if len(payload) < commandMinLen {
		return Command{}, false
	}

	return Command{
		Level:    payload[0],
		Counter:  payload[1] & CounterMask,
		Checksum: payload[2],
	}, true
}

// EncodeCommand builds a command payload with a valid checksum for the
// given level and rolling counter.
func EncodeCommand(level, counter uint8) []byte {
	counter &= CounterMask

	return []byte{level, counter, Checksum(level, counter)}
}

// Valid reports whether the checksum protects the level and counter.
func (c Command) Valid() bool {
	return VerifyChecksum(c.Level, c.Counter, c.Checksum)
}

// ClampLevel bounds a raw level to the actuator range 0..MaxLevel.
func ClampLevel(level uint8) uint8 {
	if level > MaxLevel {
		return MaxLevel
	}

	return level
}

// CounterDelta returns the forward distance from last to next on the
// 4-bit rolling counter ring. 0 is a duplicate, 1 a normal advance,
// anything else a discontinuity.
func CounterDelta(last, next uint8) uint8 {
	return (next - last) & CounterMask
}
