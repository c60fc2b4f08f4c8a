package mapfile

import "fmt"

// Registry is the ordered list of block grammars a map file is expected to
// contain. Blocks are visited strictly in this order, each at most once.
type Registry struct {
	grammars []*RowGrammar
}

// NewRegistry builds a registry. Block names must be unique.
func NewRegistry(grammars ...*RowGrammar) (*Registry, error) {
	seen := make(map[string]bool, len(grammars))
	for _, g := range grammars {
		if g == nil {
			return nil, fmt.Errorf("mapfile: nil grammar in registry")
		}
		if seen[g.Name()] {
			return nil, fmt.Errorf("mapfile: duplicate block %q in registry", g.Name())
		}
		seen[g.Name()] = true
	}
	return &Registry{grammars: append([]*RowGrammar(nil), grammars...)}, nil
}

// DefaultRegistry returns the registry for armlink symbol reports: the local
// image symbol table only.
func DefaultRegistry() *Registry {
	return &Registry{grammars: []*RowGrammar{ImageSymbolTableGrammar()}}
}

// Append returns a new registry with extra grammars after the existing ones.
func (r *Registry) Append(grammars ...*RowGrammar) (*Registry, error) {
	all := append(append([]*RowGrammar(nil), r.grammars...), grammars...)
	return NewRegistry(all...)
}

// Len returns the number of block types.
func (r *Registry) Len() int { return len(r.grammars) }

// At returns the i-th grammar.
func (r *Registry) At(i int) *RowGrammar { return r.grammars[i] }

// Names returns the block names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.grammars))
	for i, g := range r.grammars {
		names[i] = g.Name()
	}
	return names
}
