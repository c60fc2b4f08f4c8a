package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceICD/pkg/target"
)

var (
	signalMap     string
	signalAdapter string
	signalTimeout time.Duration
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Read or write ICD signals on a target",
	Long: `Resolve a signal through the ICD of a map file and access it on the target
selected with --adapter (or the target section of the configuration).

Examples:
  icd signal read motor_speed_u16 --map build/app.map
  icd signal write motor_state_e8 3 --map build/app.map --adapter cmsis-dap`,
}

var signalReadCmd = &cobra.Command{
	Use:   "read <signal>",
	Short: "Read a signal",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignalRead,
}

var signalWriteCmd = &cobra.Command{
	Use:   "write <signal> <value>",
	Short: "Write an unsigned integer to a signal",
	Args:  cobra.ExactArgs(2),
	RunE:  runSignalWrite,
}

func init() {
	rootCmd.AddCommand(signalCmd)
	signalCmd.AddCommand(signalReadCmd, signalWriteCmd)

	signalCmd.PersistentFlags().StringVarP(&signalMap, "map", "m", "", "map file (default from config)")
	signalCmd.PersistentFlags().StringVarP(&signalAdapter, "adapter", "a", "",
		"memory port: sim or cmsis-dap (default from config)")
	signalCmd.PersistentFlags().DurationVar(&signalTimeout, "timeout", 10*time.Second, "operation timeout")
}

// openSignals parses the map and opens the configured memory port.
func openSignals(ctx context.Context) (*target.Signals, target.Memory, error) {
	var args []string
	if signalMap != "" {
		args = []string{signalMap}
	}
	path, err := mapPath(args)
	if err != nil {
		return nil, nil, err
	}

	m, err := parseMap(path, "")
	if err != nil {
		return nil, nil, err
	}
	icd, err := m.ICD()
	if err != nil {
		return nil, nil, err
	}

	opts := cfg.TargetOptions()
	if signalAdapter != "" {
		opts.Adapter = signalAdapter
	}
	mem, err := target.Open(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open target: %w", err)
	}
	logger.Debug("target opened", "adapter", opts.Adapter, "signals", icd.Len())
	if dap, ok := mem.(*target.DAPMemory); ok {
		logger.Info("probe connected", "probe", dap.Info().Product, "dpidr", dap.IDCODE())
	}

	return target.NewSignals(icd, mem), mem, nil
}

func runSignalRead(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
	defer cancel()

	sigs, mem, err := openSignals(ctx)
	if err != nil {
		return err
	}
	defer mem.Close()

	out, err := readSignal(ctx, sigs, args[0])
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// readSignal formats a signal as an integer, or as raw bytes when its size
// is not an integer width.
func readSignal(ctx context.Context, sigs *target.Signals, name string) (string, error) {
	v, err := sigs.ReadUint(ctx, name)
	if err == nil {
		return fmt.Sprintf("%s = 0x%X (%d)", name, v, v), nil
	}
	if !errors.Is(err, target.ErrNotIntegerWidth) {
		return "", err
	}

	raw, err := sigs.Read(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = % X", name, raw), nil
}

func runSignalWrite(cmd *cobra.Command, args []string) error {
	name := args[0]
	v, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[1], err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
	defer cancel()

	sigs, mem, err := openSignals(ctx)
	if err != nil {
		return err
	}
	defer mem.Close()

	if err := sigs.WriteUint(ctx, name, v); err != nil {
		return err
	}
	fmt.Printf("%s <- 0x%X\n", name, v)
	return nil
}
