package target

import (
	"context"
	"sync"
)

// OpKind distinguishes entries of the simulator log.
type OpKind string

const (
	OpRead  OpKind = "read"
	OpWrite OpKind = "write"
)

// Op records one access made through a SimMemory.
type Op struct {
	Kind OpKind
	Addr uint32
	Len  int
}

// SimMemory is a sparse in-memory target. Bytes that were never written read
// as zero.
type SimMemory struct {
	mu     sync.Mutex
	bytes  map[uint32]byte
	ops    []Op
	closed bool
}

// NewSimMemory creates an empty simulated address space.
func NewSimMemory() *SimMemory {
	return &SimMemory{bytes: make(map[uint32]byte)}
}

// ReadMemory implements Memory.
func (s *SimMemory) ReadMemory(ctx context.Context, addr uint32, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	out := make([]byte, n)
	for i := range out {
		out[i] = s.bytes[addr+uint32(i)]
	}
	s.ops = append(s.ops, Op{Kind: OpRead, Addr: addr, Len: n})
	return out, nil
}

// WriteMemory implements Memory.
func (s *SimMemory) WriteMemory(ctx context.Context, addr uint32, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	for i, b := range data {
		s.bytes[addr+uint32(i)] = b
	}
	s.ops = append(s.ops, Op{Kind: OpWrite, Addr: addr, Len: len(data)})
	return nil
}

// Ops returns the accesses made so far, oldest first.
func (s *SimMemory) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// Close implements Memory.
func (s *SimMemory) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
