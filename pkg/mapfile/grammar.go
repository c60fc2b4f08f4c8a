package mapfile

import (
	"fmt"
	"regexp"
	"strings"
)

// RowGrammar describes one block type of a map file: the literal header that
// introduces the block and the pattern that extracts one record per line.
// A RowGrammar is immutable once built.
type RowGrammar struct {
	name    string
	header  []string
	pattern *regexp.Regexp
	fields  []string
	index   map[string]int
}

// NewRowGrammar builds a grammar from a header signature and a row pattern.
// Every named capture group of pattern becomes a field, in pattern order.
func NewRowGrammar(name string, header []string, pattern string) (*RowGrammar, error) {
	if name == "" {
		return nil, fmt.Errorf("mapfile: grammar name is empty")
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("mapfile: grammar %s: empty header signature", name)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("mapfile: grammar %s: invalid row pattern: %w", name, err)
	}

	g := &RowGrammar{
		name:    name,
		header:  append([]string(nil), header...),
		pattern: re,
		index:   make(map[string]int),
	}
	for _, sub := range re.SubexpNames() {
		if sub == "" {
			continue
		}
		if _, dup := g.index[sub]; dup {
			return nil, fmt.Errorf("mapfile: grammar %s: duplicate field %q", name, sub)
		}
		g.index[sub] = len(g.fields)
		g.fields = append(g.fields, sub)
	}
	if len(g.fields) == 0 {
		return nil, fmt.Errorf("mapfile: grammar %s: row pattern has no named captures", name)
	}

	return g, nil
}

// MustRowGrammar is like NewRowGrammar but panics on error. It is meant for
// grammars defined as package-level constants.
func MustRowGrammar(name string, header []string, pattern string) *RowGrammar {
	g, err := NewRowGrammar(name, header, pattern)
	if err != nil {
		panic(err)
	}
	return g
}

// HeaderFromText splits a multi-line header literal into its signature lines.
// A trailing newline yields a final blank line, which must then also be
// present in the input.
func HeaderFromText(text string) []string {
	return strings.Split(text, "\n")
}

// Name returns the block name used by the registry.
func (g *RowGrammar) Name() string { return g.name }

// Header returns a copy of the header signature.
func (g *RowGrammar) Header() []string { return append([]string(nil), g.header...) }

// Fields returns the field names in record order.
func (g *RowGrammar) Fields() []string { return append([]string(nil), g.fields...) }

// Pattern returns the source of the row pattern.
func (g *RowGrammar) Pattern() string { return g.pattern.String() }

// FieldIndex returns the record slot of field, or -1 if the grammar does not
// declare it.
func (g *RowGrammar) FieldIndex(field string) int {
	if i, ok := g.index[field]; ok {
		return i
	}
	return -1
}

// Extract applies the row pattern to a single line (without terminator).
// Captured values are trimmed; groups that did not participate yield "".
func (g *RowGrammar) Extract(line string) (Record, bool) {
	m := g.pattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	rec := make(Record, len(g.fields))
	for i, sub := range g.pattern.SubexpNames() {
		if sub == "" {
			continue
		}
		rec[g.index[sub]] = strings.TrimSpace(m[i])
	}
	return rec, true
}

// matchHeader reports whether lines start with the header signature. Every
// signature line must be present, newline terminated and identical.
func (g *RowGrammar) matchHeader(lines []line) bool {
	if len(lines) < len(g.header) {
		return false
	}
	for i, want := range g.header {
		if !lines[i].terminated || lines[i].text != want {
			return false
		}
	}
	return true
}
