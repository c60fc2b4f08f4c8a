// Package config loads the YAML configuration shared by the icd commands.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceICD/pkg/mapfile"
	"github.com/OpenTraceLab/OpenTraceICD/pkg/target"
)

// Config is the on-disk configuration.
type Config struct {
	// Map is the default map file used when a command gets no path.
	Map string `yaml:"map"`
	// DebugDump, when set, receives exit_<n>.json dumps of every block.
	DebugDump string `yaml:"debug_dump"`
	// Blocks are appended to the default registry in order.
	Blocks []Block `yaml:"blocks"`
	Target Target  `yaml:"target"`
}

// Block describes an extra block grammar. A block named after a built-in
// grammar with no header and no pattern uses the built-in definition.
type Block struct {
	Name string `yaml:"name"`
	// Header lists the exact header lines; HeaderText is an alternative
	// given as one multi-line string.
	Header     []string `yaml:"header"`
	HeaderText string   `yaml:"header_text"`
	// Pattern defaults to the symbol row pattern.
	Pattern string `yaml:"pattern"`
}

// Target selects the memory port for signal access.
type Target struct {
	Adapter string `yaml:"adapter"`
	VID     uint16 `yaml:"vid"`
	PID     uint16 `yaml:"pid"`
	ClockHz uint32 `yaml:"clock_hz"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Target: Target{
			Adapter: target.AdapterSim,
			ClockHz: 1_000_000,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to open file: %w", err)
	}
	defer f.Close()

	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads configuration from a string over the defaults.
func Parse(input string) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(strings.NewReader(input)); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return c.Validate()
}

// Validate checks values that YAML typing cannot.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Target.Adapter) {
	case "", target.AdapterSim, "simulator", target.AdapterCMSISDAP:
	default:
		return fmt.Errorf("%w: %q", target.ErrUnknownAdapter, c.Target.Adapter)
	}
	for i, b := range c.Blocks {
		if b.Name == "" {
			return fmt.Errorf("block %d has no name", i)
		}
		if len(b.Header) > 0 && b.HeaderText != "" {
			return fmt.Errorf("block %s: header and header_text are exclusive", b.Name)
		}
	}
	return nil
}

// Grammar builds the row grammar of a configured block.
func (b Block) Grammar() (*mapfile.RowGrammar, error) {
	header := b.Header
	if b.HeaderText != "" {
		header = mapfile.HeaderFromText(b.HeaderText)
	}

	if len(header) == 0 && b.Pattern == "" {
		switch b.Name {
		case mapfile.BlockImageSymbolTable:
			return mapfile.ImageSymbolTableGrammar(), nil
		case mapfile.BlockGlobalSymbols:
			return mapfile.GlobalSymbolsGrammar(), nil
		}
	}

	pattern := b.Pattern
	if pattern == "" {
		pattern = mapfile.SymbolRowPattern
	}
	return mapfile.NewRowGrammar(b.Name, header, pattern)
}

// Registry returns the default registry extended with the configured blocks.
func (c *Config) Registry() (*mapfile.Registry, error) {
	grammars := make([]*mapfile.RowGrammar, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		g, err := b.Grammar()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		grammars = append(grammars, g)
	}
	reg, err := mapfile.DefaultRegistry().Append(grammars...)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return reg, nil
}

// ParserOptions returns the mapfile options implied by the configuration.
func (c *Config) ParserOptions() ([]mapfile.Option, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	opts := []mapfile.Option{mapfile.WithRegistry(reg)}
	if c.DebugDump != "" {
		opts = append(opts, mapfile.WithDebugDump(c.DebugDump))
	}
	return opts, nil
}

// TargetOptions converts the target section for target.Open.
func (c *Config) TargetOptions() target.Options {
	return target.Options{
		Adapter: c.Target.Adapter,
		VID:     c.Target.VID,
		PID:     c.Target.PID,
		ClockHz: c.Target.ClockHz,
	}
}
