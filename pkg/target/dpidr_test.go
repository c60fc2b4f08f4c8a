package target

import "testing"

func TestParseDPIDR(t *testing.T) {
	tests := []struct {
		raw      uint32
		version  uint8
		partNo   uint8
		revision uint8
		designer string
	}{
		{0x2BA01477, 1, 0xBA, 2, "ARM"}, // Cortex-M3/M4 SW-DP
		{0x0BC12477, 2, 0xBC, 0, "ARM"}, // RP2040
		{0x0BB11477, 1, 0xBB, 0, "ARM"}, // Cortex-M0
		{0x00000041, 0, 0x00, 0, "STMicroelectronics"},
	}

	for _, tt := range tests {
		id := ParseDPIDR(tt.raw)
		if id.Version != tt.version || id.PartNo != tt.partNo || id.Revision != tt.revision {
			t.Errorf("0x%08X: unexpected fields %+v", tt.raw, id)
		}
		if id.DesignerName() != tt.designer {
			t.Errorf("0x%08X: expected designer %s, got %s", tt.raw, tt.designer, id.DesignerName())
		}
	}

	if got := ParseDPIDR(0x2BA01477).String(); got != "0x2BA01477 (ARM DPv1, part 0xBA, rev 2)" {
		t.Errorf("Unexpected string %q", got)
	}
	if got := ParseDPIDR(0x00000FFE).DesignerName(); got != "Unknown (0x7FF)" {
		t.Errorf("Expected unknown designer, got %q", got)
	}
}
