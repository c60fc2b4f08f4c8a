package mapfile

import (
	"fmt"
	"regexp"
)

// Predicates maps a field name to a regular expression. A row matches when
// every expression matches the whole value of its field.
type Predicates map[string]string

// Selection holds the projected values of the matching rows, one slice per
// projected field, in accumulation order.
type Selection map[string][]string

// Len returns the number of matching rows.
func (s Selection) Len() int {
	for _, vals := range s {
		return len(vals)
	}
	return 0
}

func (p Predicates) clone() Predicates {
	out := make(Predicates, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

type compiledPredicate struct {
	slot int
	re   *regexp.Regexp
}

// compile resolves field names and anchors every pattern. Predicates are
// evaluated in field-name order so results never depend on map iteration.
func (t *Table) compile(preds Predicates, fields []string) ([]compiledPredicate, []int, error) {
	compiled := make([]compiledPredicate, 0, len(preds))
	for _, field := range preds.fields() {
		slot := t.grammar.FieldIndex(field)
		if slot < 0 {
			return nil, nil, fmt.Errorf("%w: %q in block %s", ErrUnknownField, field, t.Name())
		}
		re, err := regexp.Compile(`^(?:` + preds[field] + `)$`)
		if err != nil {
			return nil, nil, fmt.Errorf("mapfile: invalid pattern for %s: %w", field, err)
		}
		compiled = append(compiled, compiledPredicate{slot: slot, re: re})
	}

	slots := make([]int, len(fields))
	for i, field := range fields {
		slot := t.grammar.FieldIndex(field)
		if slot < 0 {
			return nil, nil, fmt.Errorf("%w: %q in block %s", ErrUnknownField, field, t.Name())
		}
		slots[i] = slot
	}

	return compiled, slots, nil
}

// matching returns the indexes of the rows satisfying all predicates.
func (t *Table) matching(compiled []compiledPredicate) []int {
	var hits []int
	for i, rec := range t.rows {
		ok := true
		for _, p := range compiled {
			if !p.re.MatchString(rec[p.slot]) {
				ok = false
				break
			}
		}
		if ok {
			hits = append(hits, i)
		}
	}
	return hits
}

// Select returns the projected fields of every row matching preds. An empty
// predicate set matches all rows.
func (t *Table) Select(preds Predicates, fields ...string) (Selection, error) {
	compiled, slots, err := t.compile(preds, fields)
	if err != nil {
		return nil, err
	}

	hits := t.matching(compiled)
	out := make(Selection, len(fields))
	for j, field := range fields {
		vals := make([]string, len(hits))
		for i, row := range hits {
			vals[i] = t.rows[row][slots[j]]
		}
		out[field] = vals
	}
	return out, nil
}

// SelectOne is the single-match form of Select: it fails with a
// *MultiplicityError when more than one row matches and with ErrNoMatch when
// none does.
func (t *Table) SelectOne(preds Predicates, fields ...string) (map[string]string, error) {
	compiled, slots, err := t.compile(preds, fields)
	if err != nil {
		return nil, err
	}

	hits := t.matching(compiled)
	switch {
	case len(hits) == 0:
		return nil, fmt.Errorf("%w for filter %s", ErrNoMatch, preds)
	case len(hits) > 1:
		return nil, &MultiplicityError{Predicates: preds.clone(), Matches: len(hits)}
	}

	out := make(map[string]string, len(fields))
	for j, field := range fields {
		out[field] = t.rows[hits[0]][slots[j]]
	}
	return out, nil
}
