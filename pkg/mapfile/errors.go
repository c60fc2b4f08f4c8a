package mapfile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInputMissing is returned when the map file cannot be opened.
	ErrInputMissing = errors.New("mapfile: input file does not exist")

	// ErrUnknownField is returned when a query names a field the block does
	// not declare.
	ErrUnknownField = errors.New("mapfile: unknown field")

	// ErrUnknownBlock is returned when a block name is not in the registry.
	ErrUnknownBlock = errors.New("mapfile: unknown block")

	// ErrMultipleMatches is wrapped by MultiplicityError.
	ErrMultipleMatches = errors.New("mapfile: multiple matches")

	// ErrNoMatch is returned by a single-match query that matched nothing.
	ErrNoMatch = errors.New("mapfile: no match")
)

// MultiplicityError reports a single-match query that matched several rows.
type MultiplicityError struct {
	Predicates Predicates
	Matches    int
}

func (e *MultiplicityError) Error() string {
	return fmt.Sprintf("mapfile: %d matches for filter %s", e.Matches, e.Predicates)
}

func (e *MultiplicityError) Unwrap() error { return ErrMultipleMatches }

// String renders the predicates in field order, e.g. {symbol_name~"x", type~"Data"}.
func (p Predicates) String() string {
	keys := p.fields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s~%q", k, p[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (p Predicates) fields() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
