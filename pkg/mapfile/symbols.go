package mapfile

import "strings"

// Delimiter is the separator line (without terminator) that opens every block
// of an armlink map report.
var Delimiter = strings.Repeat("=", 78)

// Block names of the armlink symbol report.
const (
	BlockImageSymbolTable = "ImageSymbolTable"
	BlockGlobalSymbols    = "GlobalSymbols"
)

// Symbol table field names.
const (
	FieldSymbolName = "symbol_name"
	FieldValue      = "value"
	FieldOverlay    = "overlay"
	FieldType       = "type"
	FieldSize       = "size"
	FieldObject     = "object"
)

const symbolColumns = "    Symbol Name                              Value     Ov Type        Size  Object(Section)"

const localSymbolsHeader = `
Image Symbol Table

    Local Symbols

` + symbolColumns + `
`

const globalSymbolsHeader = `
    Global Symbols

` + symbolColumns + `
`

// SymbolRowPattern extracts one symbol table row:
//
//	<symbol_name> <hex-value> <overlay-or-blank> <type (1-2 words)> <size> <object>
const SymbolRowPattern = `^\s*(?P<symbol_name>\S+)\s+(?P<value>0x[0-9a-fA-F]+)\s(?P<overlay>[\w/.]+|\s)\s(?P<type>\w+\s\w+|\w+)\s+(?P<size>\d+)\s+(?P<object>.*)$`

// ImageSymbolTableGrammar returns the grammar of the local image symbol table.
func ImageSymbolTableGrammar() *RowGrammar {
	return MustRowGrammar(BlockImageSymbolTable, HeaderFromText(localSymbolsHeader), SymbolRowPattern)
}

// GlobalSymbolsGrammar returns the grammar of the global symbol table that
// armlink prints after the local one.
func GlobalSymbolsGrammar() *RowGrammar {
	return MustRowGrammar(BlockGlobalSymbols, HeaderFromText(globalSymbolsHeader), SymbolRowPattern)
}
