package filter

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// FilterLexer tokenizes filter expressions such as
//
//	type ~ "Data.*" and symbol_name ~ '\w+_[a-z]\d+'
var FilterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},

	// Conjunctions
	{Name: "KwAnd", Pattern: `(?i)\bAND\b`},
	{Name: "Amp", Pattern: `&&`},
	{Name: "Comma", Pattern: `,`},

	// Operators
	{Name: "Match", Pattern: `~`},
	{Name: "Equal", Pattern: `==?`},

	// Double-quoted values accept \" as an escaped quote, every other
	// backslash is kept for the regular expression.
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "RawString", Pattern: `'[^']*'`},

	// Addresses and sizes, e.g. value = 0x20000010 or size = 4.
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
})
