package mapfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// Option configures a Parser.
type Option func(*Parser)

// WithRegistry replaces the default block registry.
func WithRegistry(reg *Registry) Option {
	return func(p *Parser) { p.registry = reg }
}

// WithDebugDump makes the parser write every finished block as JSON to
// dir/exit_<index>.json.
func WithDebugDump(dir string) Option {
	return func(p *Parser) { p.dumpDir = dir }
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.log = l }
}

// Parser reads map files. A Parser holds configuration only and may be
// reused; every parse call works on its own state.
type Parser struct {
	registry *Registry
	dumpDir  string
	log      *slog.Logger
}

// NewParser creates a parser using the default registry unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{registry: DefaultRegistry()}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// Registry returns the block registry the parser works with.
func (p *Parser) Registry() *Registry { return p.registry }

// Parse parses a map report from a reader.
func (p *Parser) Parse(r io.Reader) (*MapFile, error) {
	s := &scanner{
		registry: p.registry,
		lines:    newLineReader(r),
		index:    -1,
		log:      p.log,
	}
	if p.dumpDir != "" {
		s.onClose = p.dump
	}

	s.run()
	if err := s.lines.Err(); err != nil {
		return nil, fmt.Errorf("mapfile: read error: %w", err)
	}

	return newMapFile(p.registry, s.tables, s.state), nil
}

// ParseString parses a map report held in memory.
func (p *Parser) ParseString(input string) (*MapFile, error) {
	return p.Parse(strings.NewReader(input))
}

// ParseFile parses the map report at path. A missing file fails with
// ErrInputMissing before any parsing starts.
func (p *Parser) ParseFile(path string) (*MapFile, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, path)
		}
		return nil, fmt.Errorf("mapfile: failed to open file: %w", err)
	}
	defer file.Close()

	p.log.Debug("Parsing map file", "path", path)
	m, err := p.Parse(file)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// ParseFile parses path with a default parser.
func ParseFile(path string) (*MapFile, error) {
	return NewParser().ParseFile(path)
}

// MapFile is the result of a parse: one table per block reached, in registry
// order. It is read-only and safe for concurrent queries.
type MapFile struct {
	Path string

	registry *Registry
	tables   []*Table
	byName   map[string]*Table
	state    State
}

func newMapFile(reg *Registry, tables []*Table, state State) *MapFile {
	m := &MapFile{
		registry: reg,
		tables:   tables,
		state:    state,
		byName:   make(map[string]*Table, len(tables)),
	}
	for _, t := range tables {
		m.byName[t.Name()] = t
	}
	return m
}

// State reports where the scan ended: StateExhausted when a delimiter could
// not be matched to the next registry block, StateActive when the input ended
// inside a block, StateNotStarted when the input held no delimiter.
func (m *MapFile) State() State { return m.state }

// Blocks returns the tables of the blocks found in the file, in file order.
func (m *MapFile) Blocks() []*Table {
	return append([]*Table(nil), m.tables...)
}

// Block returns the table of a registered block. A block the scan never
// reached yields an empty table.
func (m *MapFile) Block(name string) (*Table, error) {
	if t, ok := m.byName[name]; ok {
		return t, nil
	}
	for i := 0; i < m.registry.Len(); i++ {
		if g := m.registry.At(i); g.Name() == name {
			return NewTable(g), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBlock, name)
}

// SymbolTable returns the local image symbol table.
func (m *MapFile) SymbolTable() (*Table, error) {
	return m.Block(BlockImageSymbolTable)
}
