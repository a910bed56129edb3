package internal

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a stream that was stopped by the user
var ErrCancelled = errors.New("stream cancelled")

// TransportError represents a failure to reach the endpoint or read its body
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError represents a non-2xx response from the endpoint
type ProtocolError struct {
	StatusCode int
	StatusText string
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%d %s - %s", e.StatusCode, e.StatusText, e.Body)
}

// DecodeError represents a data line whose payload is not valid JSON
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StoreError represents errors accessing persisted settings or history
type StoreError struct {
	Path string
	Op   string // "open", "load", "save", "clear"
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
