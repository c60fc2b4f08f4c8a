package target

import (
	"context"
	"errors"
)

// Memory is a port onto the address space of a device under test.
type Memory interface {
	ReadMemory(ctx context.Context, addr uint32, n int) ([]byte, error)
	WriteMemory(ctx context.Context, addr uint32, data []byte) error
	Close() error
}

var (
	// ErrUnknownSignal is returned when a name is not part of the ICD.
	ErrUnknownSignal = errors.New("target: unknown signal")
	// ErrSignalOverflow is returned when a value does not fit the signal.
	ErrSignalOverflow = errors.New("target: value does not fit signal")
	// ErrNotIntegerWidth is returned by the integer accessors for signals
	// whose size is not 1, 2, 4 or 8 bytes.
	ErrNotIntegerWidth = errors.New("target: not an integer width")
	// ErrUnknownAdapter is returned by Open for an unsupported adapter name.
	ErrUnknownAdapter = errors.New("target: unknown adapter")
	// ErrNotImplemented is returned when a probe lacks a required capability,
	// such as an SWD port.
	ErrNotImplemented = errors.New("target: not implemented")
	// ErrClosed is returned by operations on a closed port.
	ErrClosed = errors.New("target: port closed")
)
