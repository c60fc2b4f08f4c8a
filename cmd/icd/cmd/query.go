package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceICD/pkg/filter"
	"github.com/OpenTraceLab/OpenTraceICD/pkg/mapfile"
)

var (
	queryWhere  string
	querySelect string
	queryBlock  string
	queryUnique bool
)

var queryCmd = &cobra.Command{
	Use:   "query [map-file]",
	Short: "Filter a block with field patterns",
	Long: `Select rows of a block whose fields fully match the given patterns and print
the projected fields. "~" compares against a regular expression, "=" against a
literal value; terms are joined with "and", "&&" or ",".

Examples:
  icd query build/app.map --where 'type ~ "Thumb Code"' --select symbol_name,value
  icd query build/app.map --where 'symbol_name = main' --select value --unique
  icd query build/app.map --block GlobalSymbols --select symbol_name`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryWhere, "where", "w", "", "filter expression")
	queryCmd.Flags().StringVarP(&querySelect, "select", "s",
		mapfile.FieldSymbolName+","+mapfile.FieldValue, "comma-separated fields to print")
	queryCmd.Flags().StringVarP(&queryBlock, "block", "b", mapfile.BlockImageSymbolTable, "block to query")
	queryCmd.Flags().BoolVarP(&queryUnique, "unique", "u", false, "require exactly one matching row")
}

func runQuery(cmd *cobra.Command, args []string) error {
	path, err := mapPath(args)
	if err != nil {
		return err
	}

	fields := splitFields(querySelect)
	if len(fields) == 0 {
		return fmt.Errorf("no fields selected")
	}

	preds, err := filter.Compile(queryWhere)
	if err != nil {
		return err
	}

	m, err := parseMap(path, "")
	if err != nil {
		return err
	}
	table, err := m.Block(queryBlock)
	if err != nil {
		return err
	}

	if queryUnique {
		row, err := table.SelectOne(preds, fields...)
		if err != nil {
			return err
		}
		for _, f := range fields {
			fmt.Printf("%s: %s\n", f, row[f])
		}
		return nil
	}

	sel, err := table.Select(preds, fields...)
	if err != nil {
		return err
	}

	fmt.Println(strings.Join(fields, "\t"))
	for i := 0; i < sel.Len(); i++ {
		vals := make([]string, len(fields))
		for j, f := range fields {
			vals[j] = sel[f][i]
		}
		fmt.Println(strings.Join(vals, "\t"))
	}
	if verbose {
		fmt.Printf("\n%d row(s) matched %s\n", sel.Len(), preds)
	}
	return nil
}

func splitFields(list string) []string {
	var fields []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
