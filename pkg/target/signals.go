package target

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceICD/pkg/mapfile"
)

// Signals reads and writes ICD signals by name.
type Signals struct {
	icd *mapfile.ICD
	mem Memory
}

// NewSignals binds an ICD to a memory port.
func NewSignals(icd *mapfile.ICD, mem Memory) *Signals {
	return &Signals{icd: icd, mem: mem}
}

// resolve returns the address and width of a signal.
func (s *Signals) resolve(name string) (uint32, int, error) {
	sig, ok := s.icd.Lookup(name)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownSignal, name)
	}
	addr, err := sig.Address()
	if err != nil {
		return 0, 0, err
	}
	size, err := sig.Bytes()
	if err != nil {
		return 0, 0, err
	}
	return addr, size, nil
}

// Read returns the raw bytes of a signal.
func (s *Signals) Read(ctx context.Context, name string) ([]byte, error) {
	addr, size, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return s.mem.ReadMemory(ctx, addr, size)
}

// Write stores data at the signal address. Shorter payloads only update the
// leading bytes.
func (s *Signals) Write(ctx context.Context, name string, data []byte) error {
	addr, size, err := s.resolve(name)
	if err != nil {
		return err
	}
	if len(data) > size {
		return fmt.Errorf("%w: %s holds %d bytes, got %d", ErrSignalOverflow, name, size, len(data))
	}
	return s.mem.WriteMemory(ctx, addr, data)
}

func checkWidth(name string, size int) error {
	switch size {
	case 1, 2, 4, 8:
		return nil
	}
	return fmt.Errorf("%w: %s has %d bytes", ErrNotIntegerWidth, name, size)
}

// ReadUint reads a little-endian unsigned integer signal.
func (s *Signals) ReadUint(ctx context.Context, name string) (uint64, error) {
	addr, size, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	if err := checkWidth(name, size); err != nil {
		return 0, err
	}
	data, err := s.mem.ReadMemory(ctx, addr, size)
	if err != nil {
		return 0, err
	}
	var buf [8]byte
	copy(buf[:], data)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteUint writes v little-endian over the full width of the signal.
func (s *Signals) WriteUint(ctx context.Context, name string, v uint64) error {
	addr, size, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := checkWidth(name, size); err != nil {
		return err
	}
	if size < 8 && v>>(8*uint(size)) != 0 {
		return fmt.Errorf("%w: %d needs more than %d bytes for %s", ErrSignalOverflow, v, size, name)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return s.mem.WriteMemory(ctx, addr, buf[:size])
}
