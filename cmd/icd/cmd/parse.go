package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dumpDir string

var parseCmd = &cobra.Command{
	Use:   "parse [map-file]",
	Short: "Parse a map file and summarize its blocks",
	Long: `Parse a linker map file and print the blocks that were recognized, with the
number of rows collected in each.

Examples:
  icd parse build/app.map
  icd parse -v --dump /tmp/blocks build/app.map`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&dumpDir, "dump", "", "write every block as JSON into this directory")
}

func runParse(cmd *cobra.Command, args []string) error {
	path, err := mapPath(args)
	if err != nil {
		return err
	}

	m, err := parseMap(path, dumpDir)
	if err != nil {
		return err
	}

	fmt.Printf("Map file: %s\n", path)
	fmt.Printf("Scan:     %s\n\n", m.State())

	blocks := m.Blocks()
	if len(blocks) == 0 {
		fmt.Println("No blocks recognized.")
		return nil
	}

	fmt.Printf("Blocks (%d):\n", len(blocks))
	for _, t := range blocks {
		fmt.Printf("  %-20s %6d rows\n", t.Name(), t.Len())
		if verbose {
			fmt.Printf("    fields: %s\n", strings.Join(t.Grammar().Fields(), ", "))
		}
	}
	return nil
}
