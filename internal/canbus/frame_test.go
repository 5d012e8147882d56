package canbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNewFrame verifies identifier width selection and payload limits.
func TestNewFrame(t *testing.T) {
	t.Parallel()

	f, err := NewFrame(0x180, []byte{70, 1, 0xB8})
	require.NoError(t, err)
	require.False(t, f.Extended)
	require.Equal(t, uint8(3), f.Len)
	require.Equal(t, byte(70), f.Data[0])

	f, err = NewFrame(0x1ABCDE, []byte{1})
	require.NoError(t, err)
	require.True(t, f.Extended)

	_, err = NewFrame(0x180, make([]byte, 9))
	require.ErrorIs(t, err, ErrInvalidLen)

	_, err = NewFrame(MaxExtendedID+1, nil)
	require.ErrorIs(t, err, ErrInvalidID)
}

// TestFrame_Validate verifies the identifier and length checks.
func TestFrame_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Frame{ID: MaxStandardID, Len: 8}.Validate())
	require.ErrorIs(t, Frame{ID: MaxStandardID + 1}.Validate(), ErrInvalidID)
	require.NoError(t, Frame{ID: MaxStandardID + 1, Extended: true}.Validate())
	require.ErrorIs(t, Frame{ID: 1, Len: 9}.Validate(), ErrInvalidLen)
}

// TestFrame_MarshalRoundtrip verifies the can_frame wire layout both ways.
func TestFrame_MarshalRoundtrip(t *testing.T) {
	t.Parallel()

	frames := []Frame{
		{ID: 0x180, Len: 3, Data: [8]byte{70, 1, 0xB8}},
		{ID: 0x280, Len: 8, Data: [8]byte{41, 0b101, 0, 0, 0, 0, 0, 0}},
		{ID: 0x1ABCDE, Extended: true, Len: 1, Data: [8]byte{0xFF}},
		{ID: 0x42, RTR: true},
	}

	for _, want := range frames {
		buf, err := want.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, buf, 16)

		var got Frame
		require.NoError(t, got.UnmarshalBinary(buf))
		require.Equal(t, want, got)
	}

	// The flag bits live in the identifier word.
	buf, err := Frame{ID: 0x1ABCDE, Extended: true, RTR: true}.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, byte(0xC0), buf[3]&0xC0)

	var f Frame
	require.Error(t, f.UnmarshalBinary(make([]byte, 15)))
}

// TestFrame_String verifies the candump notation.
func TestFrame_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "180#46010B", Frame{ID: 0x180, Len: 3, Data: [8]byte{0x46, 0x01, 0x0B}}.String())
	require.Equal(t, "001ABCDE#FF", Frame{ID: 0x1ABCDE, Extended: true, Len: 1, Data: [8]byte{0xFF}}.String())
	require.Equal(t, "042#R", Frame{ID: 0x42, RTR: true}.String())
}
