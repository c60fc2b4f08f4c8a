package mapfile

import (
	"fmt"
	"strconv"
)

// ICDPredicates selects addressable signals: data symbols named
// <identifier>_<lowercase letter><digits>..., e.g. motor_speed_u16.
var ICDPredicates = Predicates{
	FieldType:       `Data(?:\s\w+)?`,
	FieldSymbolName: `\w+_[a-z]\d+.*`,
}

// Signal is one ICD entry.
type Signal struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Size  string `json:"size"`
}

// Address parses the hexadecimal symbol value.
func (s Signal) Address() (uint32, error) {
	v, err := strconv.ParseUint(s.Value, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("mapfile: signal %s: bad address %q: %w", s.Name, s.Value, err)
	}
	return uint32(v), nil
}

// Bytes parses the decimal symbol size.
func (s Signal) Bytes() (int, error) {
	n, err := strconv.Atoi(s.Size)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("mapfile: signal %s: bad size %q", s.Name, s.Size)
	}
	return n, nil
}

// ICD is the interface control document derived from a symbol table: the
// signals in file order.
type ICD struct {
	signals []Signal
}

// ICD runs the signal query against the symbol table. It is recomputed on
// every call.
func (m *MapFile) ICD() (*ICD, error) {
	t, err := m.SymbolTable()
	if err != nil {
		return nil, err
	}
	return ProjectICD(t)
}

// ProjectICD applies the signal query to a symbol table.
func ProjectICD(t *Table) (*ICD, error) {
	sel, err := t.Select(ICDPredicates, FieldSymbolName, FieldValue, FieldSize)
	if err != nil {
		return nil, err
	}

	names := sel[FieldSymbolName]
	icd := &ICD{signals: make([]Signal, len(names))}
	for i, name := range names {
		icd.signals[i] = Signal{
			Name:  name,
			Value: sel[FieldValue][i],
			Size:  sel[FieldSize][i],
		}
	}
	return icd, nil
}

// Len returns the number of signals.
func (icd *ICD) Len() int { return len(icd.signals) }

// Signals returns the signals in file order.
func (icd *ICD) Signals() []Signal {
	return append([]Signal(nil), icd.signals...)
}

// Addresses returns the name→hex address map.
func (icd *ICD) Addresses() map[string]string {
	out := make(map[string]string, len(icd.signals))
	for i := len(icd.signals) - 1; i >= 0; i-- {
		out[icd.signals[i].Name] = icd.signals[i].Value
	}
	return out
}

// Lookup returns the first signal called name.
func (icd *ICD) Lookup(name string) (Signal, bool) {
	for _, s := range icd.signals {
		if s.Name == name {
			return s, true
		}
	}
	return Signal{}, false
}
