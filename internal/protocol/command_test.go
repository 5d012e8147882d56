package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseCommand verifies field extraction, nibble masking and the
// silent rejection of short payloads.
func TestParseCommand(t *testing.T) {
	t.Parallel()

	cmd, ok := ParseCommand([]byte{70, 0xF1, 0xB8})
	require.True(t, ok)
	require.Equal(t, uint8(70), cmd.Level)
	require.Equal(t, uint8(1), cmd.Counter, "high nibble of byte1 must be masked off")
	require.Equal(t, uint8(0xB8), cmd.Checksum)

	// Bytes beyond the third are ignored.
	longer, ok := ParseCommand([]byte{70, 1, 0xB8, 0xDE, 0xAD})
	require.True(t, ok)
	require.Equal(t, cmd, longer)

	_, ok = ParseCommand([]byte{70, 1})
	require.False(t, ok)

	_, ok = ParseCommand(nil)
	require.False(t, ok)
}

// TestEncodeCommand_Valid verifies that encoded commands carry a checksum
// that survives parsing, and that corruption is caught.
func TestEncodeCommand_Valid(t *testing.T) {
	t.Parallel()

	payload := EncodeCommand(130, 7)

	cmd, ok := ParseCommand(payload)
	require.True(t, ok)
	require.True(t, cmd.Valid())
	require.Equal(t, uint8(130), cmd.Level)
	require.Equal(t, uint8(7), cmd.Counter)

	payload[2] ^= 0x5A

	cmd, ok = ParseCommand(payload)
	require.True(t, ok)
	require.False(t, cmd.Valid())
}

// TestClampLevel verifies the actuator range bound.
func TestClampLevel(t *testing.T) {
	t.Parallel()

	cases := map[uint8]uint8{
		0:   0,
		70:  70,
		100: 100,
		101: 100,
		130: 100,
		255: 100,
	}
	for raw, want := range cases {
		require.Equal(t, want, ClampLevel(raw))
	}
}

// TestCounterDelta verifies distances on the 4-bit ring.
func TestCounterDelta(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint8(1), CounterDelta(0, 1))
	require.Equal(t, uint8(1), CounterDelta(15, 0), "wrap-around is a normal advance")
	require.Equal(t, uint8(0), CounterDelta(7, 7), "duplicate")
	require.Equal(t, uint8(5), CounterDelta(2, 7), "jump")
	require.Equal(t, uint8(15), CounterDelta(5, 4), "step back looks like a huge jump")
}
