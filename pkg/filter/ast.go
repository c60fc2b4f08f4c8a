package filter

import "github.com/alecthomas/participle/v2/lexer"

// Expression is a conjunction of terms.
// Example: type ~ "Data" and symbol_name = motor_speed_u16
type Expression struct {
	Terms []*Term `@@ ( ( KwAnd | Amp | Comma ) @@ )*`
}

// Term constrains one field.
type Term struct {
	Pos lexer.Position

	Field string `@Ident`
	Op    string `@( Match | Equal )`
	Value string `@( String | RawString | Number | Ident )`
}

// Literal reports whether the value is compared verbatim rather than as a
// regular expression.
func (t *Term) Literal() bool {
	return t.Op != "~"
}
