package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceICD/pkg/mapfile"
)

const appMap = "../../../pkg/mapfile/testdata/app.map"

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking on Windows
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	// Reset flags to prevent accumulation between tests
	verbose = false
	configPath = ""
	dumpDir = ""
	icdJSON = false
	queryWhere = ""
	querySelect = mapfile.FieldSymbolName + "," + mapfile.FieldValue
	queryBlock = mapfile.BlockImageSymbolTable
	queryUnique = false
	signalMap = ""
	signalAdapter = ""
	signalTimeout = 10 * time.Second

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	// Restore stdout and wait for reader
	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

func runCases(t *testing.T, tests []cliCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
			for _, unwanted := range tt.wantAbsent {
				if strings.Contains(output, unwanted) {
					t.Errorf("Output contains unexpected string: %q\nGot:\n%s", unwanted, output)
				}
			}
		})
	}
}

type cliCase struct {
	name        string
	args        []string
	wantErr     bool
	wantContain []string
	wantAbsent  []string
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "icd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// TestParseE2E tests the parse command end-to-end
func TestParseE2E(t *testing.T) {
	withGlobals := writeConfig(t, "blocks:\n  - name: GlobalSymbols\n")
	withMap := writeConfig(t, "map: "+appMap+"\n")

	runCases(t, []cliCase{
		{
			name: "default registry",
			args: []string{"parse", appMap},
			wantContain: []string{
				"Map file: " + appMap,
				"exhausted",
				"ImageSymbolTable",
				"10 rows",
			},
			wantAbsent: []string{"GlobalSymbols"},
		},
		{
			name: "global symbols from config",
			args: []string{"parse", "--config", withGlobals, "-v", appMap},
			wantContain: []string{
				"Blocks (2):",
				"GlobalSymbols",
				"2 rows",
				"fields: symbol_name, value, overlay, type, size, object",
			},
		},
		{
			name:        "map path from config",
			args:        []string{"parse", "-c", withMap},
			wantContain: []string{"10 rows"},
		},
		{
			name:    "no map file",
			args:    []string{"parse"},
			wantErr: true,
		},
		{
			name:    "missing file",
			args:    []string{"parse", "/nonexistent/app.map"},
			wantErr: true,
		},
		{
			name:    "missing config",
			args:    []string{"parse", "--config", "/nonexistent/icd.yaml", appMap},
			wantErr: true,
		},
	})
}

func TestParseDumpE2E(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")

	if _, err := execute(t, "parse", "--dump", dir, appMap); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "exit_0.json")); err != nil {
		t.Errorf("Expected block dump: %v", err)
	}
}

// TestICDE2E tests the icd command end-to-end
func TestICDE2E(t *testing.T) {
	runCases(t, []cliCase{
		{
			name: "table",
			args: []string{"icd", appMap},
			wantContain: []string{
				"motor_speed_u16",
				"0x20000010",
				"ctrl_gain_k2",
				"4 signal(s)",
			},
			wantAbsent: []string{"adc_scale", "motor_step", "sys_tick_t32"},
		},
		{
			name:    "missing file",
			args:    []string{"icd", "/nonexistent/app.map"},
			wantErr: true,
		},
	})
}

func TestICDJSONE2E(t *testing.T) {
	output, err := execute(t, "icd", "--json", appMap)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var sigs []mapfile.Signal
	if err := json.Unmarshal([]byte(output), &sigs); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
	if len(sigs) != 4 || sigs[0].Name != "motor_speed_u16" || sigs[0].Size != "2" {
		t.Errorf("Unexpected signals: %+v", sigs)
	}
}

// TestQueryE2E tests the query command end-to-end
func TestQueryE2E(t *testing.T) {
	runCases(t, []cliCase{
		{
			name:        "regex filter",
			args:        []string{"query", appMap, "--where", `type ~ "Thumb Code"`, "--select", "symbol_name,value"},
			wantContain: []string{"symbol_name\tvalue", "motor_step\t0x08000191"},
			wantAbsent:  []string{"motor_speed_u16"},
		},
		{
			name:        "literal filter",
			args:        []string{"query", appMap, "-w", `object = "motor.o(.data)"`, "-s", "symbol_name"},
			wantContain: []string{"motor_speed_u16", "motor_state_e8"},
			wantAbsent:  []string{"adc_raw_a12"},
		},
		{
			name:        "unique",
			args:        []string{"query", appMap, "-w", "symbol_name = motor_state_e8", "-s", "value,size", "--unique"},
			wantContain: []string{"value: 0x20000012", "size: 1"},
		},
		{
			name:        "numeric filter",
			args:        []string{"query", appMap, "-w", "value = 0x20000012 and size = 1", "-s", "symbol_name", "-u"},
			wantContain: []string{"symbol_name: motor_state_e8"},
		},
		{
			name:    "unique with several matches",
			args:    []string{"query", appMap, "-w", `type ~ Data`, "--unique"},
			wantErr: true,
		},
		{
			name:    "unique without match",
			args:    []string{"query", appMap, "-w", "symbol_name = nothing", "--unique"},
			wantErr: true,
		},
		{
			name:    "unknown field",
			args:    []string{"query", appMap, "-s", "address"},
			wantErr: true,
		},
		{
			name:    "bad filter",
			args:    []string{"query", appMap, "-w", "type ~"},
			wantErr: true,
		},
		{
			name:    "unregistered block",
			args:    []string{"query", appMap, "--block", "GlobalSymbols"},
			wantErr: true,
		},
	})
}

// TestSignalE2E tests the signal commands against the simulator
func TestSignalE2E(t *testing.T) {
	runCases(t, []cliCase{
		{
			name:        "write",
			args:        []string{"signal", "write", "motor_speed_u16", "0x1234", "--map", appMap, "--adapter", "sim"},
			wantContain: []string{"motor_speed_u16 <- 0x1234"},
		},
		{
			name:        "read fresh simulator",
			args:        []string{"signal", "read", "adc_raw_a12", "--map", appMap},
			wantContain: []string{"adc_raw_a12 = 0x0 (0)"},
		},
		{
			name:    "unknown signal",
			args:    []string{"signal", "read", "adc_scale", "--map", appMap},
			wantErr: true,
		},
		{
			name:    "value too wide",
			args:    []string{"signal", "write", "motor_state_e8", "256", "--map", appMap},
			wantErr: true,
		},
		{
			name:    "bad value",
			args:    []string{"signal", "write", "motor_state_e8", "fast", "--map", appMap},
			wantErr: true,
		},
		{
			name:    "unknown adapter",
			args:    []string{"signal", "read", "adc_raw_a12", "--map", appMap, "--adapter", "stlink"},
			wantErr: true,
		},
	})
}
