package mapfile

import "log/slog"

// State is the position of the scanner within the registry.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateActive:
		return "active"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// scanner drives one parse. It walks the input line by line, moves to the
// next registry block at every delimiter and feeds the active table.
type scanner struct {
	registry *Registry
	lines    *lineReader
	log      *slog.Logger

	state  State
	index  int
	tables []*Table

	onClose func(index int, t *Table)
}

func (s *scanner) run() {
	for s.state != StateExhausted {
		l, ok := s.lines.next()
		if !ok {
			break
		}

		if isDelimiter(l) {
			s.advance(l.number)
			continue
		}

		if s.state == StateActive {
			s.tables[s.index].Collect(l.text)
		}
	}

	if s.state == StateActive {
		s.closeBlock()
		s.log.Debug("End of input", "block", s.registry.At(s.index).Name())
	}
}

// advance handles a delimiter: close the current block and try to open the
// next one in the registry.
func (s *scanner) advance(lineNo int) {
	if s.state == StateActive {
		s.closeBlock()
	}

	next := s.index + 1
	if next >= s.registry.Len() {
		s.exhaust("registry exhausted", lineNo)
		return
	}

	g := s.registry.At(next)
	if !matchNext(s.lines, g) {
		s.exhaust("header mismatch for "+g.Name(), lineNo)
		return
	}

	s.index = next
	s.state = StateActive
	s.tables = append(s.tables, NewTable(g))
	s.log.Debug("Block opened", "block", g.Name(), "line", lineNo)
}

func (s *scanner) closeBlock() {
	t := s.tables[s.index]
	s.log.Debug("Block closed", "block", t.Name(), "rows", t.Len())
	if s.onClose != nil {
		s.onClose(s.index, t)
	}
}

func (s *scanner) exhaust(reason string, lineNo int) {
	s.state = StateExhausted
	s.log.Debug("Scan stopped", "reason", reason, "line", lineNo)
}

// matchNext checks the lines following a delimiter against the header of g.
// The header lines are consumed only on a match; on a mismatch the cursor is
// left where it was.
func matchNext(lr *lineReader, g *RowGrammar) bool {
	n := len(g.header)
	if !g.matchHeader(lr.peek(n)) {
		return false
	}
	lr.discard(n)
	return true
}

func isDelimiter(l line) bool {
	return l.terminated && l.text == Delimiter
}
