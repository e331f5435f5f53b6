package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch marks transport or decoding failures talking to the content backend.
	ErrFetch = errors.New("fetch failed")
	// ErrMalformedContent marks a record that lacks a field required for display.
	ErrMalformedContent = errors.New("malformed content")
	// ErrNotFound is returned when no record matches the requested identifier.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCursor is returned for next-page cursors that do not address the content backend.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// FetchError describes a failed call to the content backend.
// StatusCode is zero when no HTTP response was received.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cms: %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("cms: %s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// MalformedContentError names the record and the missing field.
type MalformedContentError struct {
	ID    string
	Field string
}

func (e *MalformedContentError) Error() string {
	id := e.ID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("malformed content in record %s: missing %s", id, e.Field)
}

func (e *MalformedContentError) Is(target error) bool {
	return target == ErrMalformedContent
}
