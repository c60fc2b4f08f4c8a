package mapfile

import (
	"encoding/json"
	"fmt"
)

// Record is one extracted row. Slot i holds the value of the grammar's i-th
// field.
type Record []string

// Table accumulates the records of one block in input order. Records are
// only ever appended.
type Table struct {
	grammar *RowGrammar
	rows    []Record
}

// NewTable creates an empty table for grammar.
func NewTable(grammar *RowGrammar) *Table {
	return &Table{grammar: grammar}
}

// Grammar returns the grammar the table was built with.
func (t *Table) Grammar() *RowGrammar { return t.grammar }

// Name returns the block name.
func (t *Table) Name() string { return t.grammar.Name() }

// Len returns the number of accumulated rows.
func (t *Table) Len() int { return len(t.rows) }

// Collect extracts a record from line and appends it. Lines that do not match
// the row pattern leave the table untouched.
func (t *Table) Collect(line string) bool {
	rec, ok := t.grammar.Extract(line)
	if !ok {
		return false
	}
	t.rows = append(t.rows, rec)
	return true
}

// Row returns the i-th record as a field→value map.
func (t *Table) Row(i int) map[string]string {
	out := make(map[string]string, len(t.grammar.fields))
	for j, f := range t.grammar.fields {
		out[f] = t.rows[i][j]
	}
	return out
}

// Column returns the values of field in row order.
func (t *Table) Column(field string) ([]string, error) {
	idx := t.grammar.FieldIndex(field)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in block %s", ErrUnknownField, field, t.Name())
	}
	col := make([]string, len(t.rows))
	for i, rec := range t.rows {
		col[i] = rec[idx]
	}
	return col, nil
}

// Columns returns the column-oriented view of the whole table.
func (t *Table) Columns() map[string][]string {
	out := make(map[string][]string, len(t.grammar.fields))
	for _, f := range t.grammar.fields {
		col, _ := t.Column(f)
		out[f] = col
	}
	return out
}

// MarshalJSON encodes the table column by column, which is the layout of the
// debug dumps.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Columns())
}
