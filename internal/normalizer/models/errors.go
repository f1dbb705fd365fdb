package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInput indicates a missing or unreadable document.
	ErrInput = errors.New("invalid input document")

	// ErrUnsupportedEntity indicates an entity that cannot be reduced to
	// two endpoints.
	ErrUnsupportedEntity = errors.New("unsupported entity")

	// ErrMalformedLoop indicates a loop whose chain does not close.
	ErrMalformedLoop = errors.New("malformed loop")

	// ErrSearchTruncated indicates the loop search hit a configured limit.
	// Loops found before the limit are still returned.
	ErrSearchTruncated = errors.New("loop search truncated")
)

// InputError wraps a document-level read failure.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read document: %v", e.Err)
	}
	return fmt.Sprintf("read document %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() []error { return []error{ErrInput, e.Err} }

// UnsupportedEntityError reports an entity skipped by the edge extractor.
type UnsupportedEntityError struct {
	Handle Handle
	Type   string
	Reason string
}

func (e *UnsupportedEntityError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("entity %s (%s): %v", e.Handle, e.Type, ErrUnsupportedEntity)
	}
	return fmt.Sprintf("entity %s (%s): %v: %s", e.Handle, e.Type, ErrUnsupportedEntity, e.Reason)
}

func (e *UnsupportedEntityError) Unwrap() error { return ErrUnsupportedEntity }

// MalformedLoopError reports a loop the assembler refused to close.
type MalformedLoopError struct {
	Handles []Handle
	Gap     float64
	Reason  string
}

func (e *MalformedLoopError) Error() string {
	return fmt.Sprintf("%v over %v: %s (gap %g)", ErrMalformedLoop, e.Handles, e.Reason, e.Gap)
}

func (e *MalformedLoopError) Unwrap() error { return ErrMalformedLoop }
