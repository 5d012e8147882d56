package canbus

import "errors"

// Bus is a CAN bus connection able to send and receive frames.
// Implementations must be safe for concurrent use by multiple goroutines.
type Bus interface {
	// Send transmits a frame. It may block until the frame is queued.
	Send(frame Frame) error

	// Receive retrieves the next available frame. It blocks until a frame
	// is available or the bus is closed.
	Receive() (Frame, error)

	// Close releases resources and unblocks pending Receive calls.
	Close() error
}

// ErrClosed indicates the bus or endpoint has been closed.
var ErrClosed = errors.New("canbus: closed")
