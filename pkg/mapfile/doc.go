// Package mapfile parses linker map reports (armlink --map --symbols style)
// into symbol tables and derives the Interface Control Document (ICD) used
// by hardware-in-the-loop tests to address target signals.
//
// # Overview
//
// A map report is a sequence of blocks. Every block starts with a delimiter
// line of 78 '=' characters followed by a fixed header, then data rows:
//
//	==============================================================================
//
//	Image Symbol Table
//
//	    Local Symbols
//
//	    Symbol Name                              Value     Ov Type        Size  Object(Section)
//
//	    motor_speed_u16                          0x20000010   Data           2  motor.o(.data)
//
// The package models each block type as a RowGrammar (header + row pattern)
// and the expected order of blocks as a Registry. The scanner walks the file,
// opens the next registry block at each delimiter whose header matches, and
// hands the following lines to that block's Table. A delimiter that does not
// introduce the next expected block ends the scan: whatever was collected so
// far is kept and the rest of the file is not read.
//
// # Usage
//
//	m, err := mapfile.ParseFile("build/app.map")
//	if err != nil {
//		return err
//	}
//
//	icd, err := m.ICD()
//	for _, sig := range icd.Signals() {
//		fmt.Printf("%s @ %s (%s bytes)\n", sig.Name, sig.Value, sig.Size)
//	}
//
//	// Ad-hoc queries use full-match regular expressions per field.
//	table, _ := m.SymbolTable()
//	sel, err := table.Select(mapfile.Predicates{"type": "Thumb Code"}, "symbol_name")
//
// # Errors
//
// Only structural problems surface as errors: a missing input file
// (ErrInputMissing), a read failure, unknown fields in a query
// (ErrUnknownField) and single-match queries that matched several rows
// (*MultiplicityError) or none (ErrNoMatch). Rows that do not fit the row
// pattern are dropped silently, and an empty ICD is a valid result.
//
// # Concurrency
//
// A MapFile is immutable once ParseFile returns; queries and ICD projections
// may run concurrently.
package mapfile
