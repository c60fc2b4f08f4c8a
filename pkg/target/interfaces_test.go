package target

import (
	"context"
	"errors"
	"testing"
)

func TestInterfaceLabel(t *testing.T) {
	tests := []struct {
		info InterfaceInfo
		want string
	}{
		{InterfaceInfo{Adapter: AdapterSim, Description: "Simulator (no hardware)"}, "Simulator (no hardware)"},
		{InterfaceInfo{Adapter: AdapterCMSISDAP, VendorID: 0x0d28, ProductID: 0x0204}, "cmsis-dap (0D28:0204)"},
		{InterfaceInfo{Description: "DAPLink CMSIS-DAP", Serial: "0240000"}, "DAPLink CMSIS-DAP [0240000]"},
	}

	for _, tt := range tests {
		if got := tt.info.Label(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestOpenSimulator(t *testing.T) {
	for _, name := range []string{"", "sim", "Simulator"} {
		mem, err := Open(context.Background(), Options{Adapter: name})
		if err != nil {
			t.Fatalf("Failed to open %q: %v", name, err)
		}
		if _, ok := mem.(*SimMemory); !ok {
			t.Errorf("Expected *SimMemory for %q, got %T", name, mem)
		}
		mem.Close()
	}
}

func TestOpenUnknownAdapter(t *testing.T) {
	_, err := Open(context.Background(), Options{Adapter: "stlink"})
	if !errors.Is(err, ErrUnknownAdapter) {
		t.Errorf("Expected ErrUnknownAdapter, got %v", err)
	}
}
