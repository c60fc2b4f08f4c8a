package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceICD/internal/config"
	"github.com/OpenTraceLab/OpenTraceICD/pkg/mapfile"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    = config.Default()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "icd",
	Short: "Linker map parser and ICD signal access",
	Long: `Parse armlink symbol reports, derive the interface control document (ICD)
and read or write the listed signals on a target.

Examples:
  icd parse build/app.map                          # Show the blocks found in a map file
  icd icd build/app.map                            # List ICD signals
  icd query build/app.map --where 'type ~ "Thumb Code"' --select symbol_name,value
  icd signal read motor_speed_u16 --map build/app.map --adapter cmsis-dap`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

// setup loads the configuration and installs the logger for every command.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// mapPath picks the map file from the arguments or the configuration.
func mapPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Map != "" {
		return cfg.Map, nil
	}
	return "", fmt.Errorf("no map file given and none configured")
}

// parseMap parses path with the configured registry. A non-empty dumpDir
// overrides the configured debug dump directory.
func parseMap(path, dumpDir string) (*mapfile.MapFile, error) {
	opts, err := cfg.ParserOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, mapfile.WithLogger(logger))
	if dumpDir != "" {
		opts = append(opts, mapfile.WithDebugDump(dumpDir))
	}

	m, err := mapfile.NewParser(opts...).ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse map file: %w", err)
	}
	return m, nil
}
