package framelog

import (
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Recorder consumes frame events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// Record stores one event. It never reports failure; tracing must not
	// disrupt the monitor.
	Record(event Event)

	// Close flushes and releases the underlying sink.
	Close() error
}

// FileRecorder appends CBOR-encoded events to a file.
type FileRecorder struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileRecorder opens path for appending, creating it with 0644 when
// absent.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("framelog: open trace file: %w", err)
	}

	return &FileRecorder{
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Record appends the event. Encoding errors are dropped; a broken trace
// must not take the monitor down with it.
func (r *FileRecorder) Record(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	_ = r.encoder.Encode(event)
}

// Close closes the trace file. It is safe to call multiple times; Record
// calls after Close are silently ignored.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	return r.file.Close()
}

// Nop is a Recorder that drops every event. It stands in when no trace
// file is configured.
type Nop struct{}

// Record drops the event.
func (Nop) Record(Event) {}

// Close does nothing.
func (Nop) Close() error { return nil }

// Compile-time interface satisfaction checks.
var (
	_ Recorder = (*FileRecorder)(nil)
	_ Recorder = Nop{}
)
