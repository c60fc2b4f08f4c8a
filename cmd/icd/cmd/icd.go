package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var icdJSON bool

var icdCmd = &cobra.Command{
	Use:   "icd [map-file]",
	Short: "Print the interface control document",
	Long: `Derive the ICD from the local symbol table: data symbols named
<name>_<letter><digits>..., listed in file order with address and size.

Examples:
  icd icd build/app.map
  icd icd --json build/app.map > icd.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runICD,
}

func init() {
	rootCmd.AddCommand(icdCmd)

	icdCmd.Flags().BoolVar(&icdJSON, "json", false, "print the signals as JSON")
}

func runICD(cmd *cobra.Command, args []string) error {
	path, err := mapPath(args)
	if err != nil {
		return err
	}

	m, err := parseMap(path, "")
	if err != nil {
		return err
	}

	icd, err := m.ICD()
	if err != nil {
		return err
	}

	if icdJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(icd.Signals())
	}

	if icd.Len() == 0 {
		fmt.Println("No signals found.")
		return nil
	}

	fmt.Printf("%-40s %-12s %s\n", "Signal", "Address", "Size")
	for _, sig := range icd.Signals() {
		fmt.Printf("%-40s %-12s %s\n", sig.Name, sig.Value, sig.Size)
	}
	fmt.Printf("\n%d signal(s)\n", icd.Len())
	return nil
}
