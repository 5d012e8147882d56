package framelog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects trace events on read. Zero/nil fields match everything
// for that criterion.
type Filter struct {
	// RunID filters by exact run identifier match.
	RunID string

	// Direction filters by frame flow.
	Direction *Direction

	// ID filters by CAN identifier.
	ID *uint32
}

// matches reports whether the event satisfies all filter criteria.
func (f *Filter) matches(event Event) bool {
	if f.RunID != "" && event.RunID != f.RunID {
		return false
	}

	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}

	if f.ID != nil && event.ID != *f.ID {
		return false
	}

	return true
}

// Reader iterates the events of a recorded trace file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a trace file for reading all its events.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a trace file for reading the events matching
// the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("framelog: open trace file: %w", err)
	}

	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next event matching the filter, or io.EOF when the
// trace is exhausted.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}

			return Event{}, fmt.Errorf("framelog: decode event: %w", err)
		}

		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
