package target

import "fmt"

// DPIDR is the decoded identification register of an SWD debug port.
type DPIDR struct {
	Raw      uint32
	Revision uint8  // [31:28]
	PartNo   uint8  // [27:20]
	MinDP    bool   // [16]
	Version  uint8  // [15:12] DP architecture version
	Designer uint16 // [11:1] JEP106 continuation count and identity
}

// ParseDPIDR splits a raw DPIDR value into its fields.
func ParseDPIDR(raw uint32) DPIDR {
	return DPIDR{
		Raw:      raw,
		Revision: uint8((raw >> 28) & 0xF),
		PartNo:   uint8((raw >> 20) & 0xFF),
		MinDP:    raw&(1<<16) != 0,
		Version:  uint8((raw >> 12) & 0xF),
		Designer: uint16((raw >> 1) & 0x7FF),
	}
}

// designers is the subset of JEP106 seen in debug port implementations.
var designers = map[uint16]string{
	0x23B: "ARM",
	0x020: "STMicroelectronics",
}

// DesignerName returns the JEP106 name of the designer.
func (d DPIDR) DesignerName() string {
	if name, ok := designers[d.Designer]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%03X)", d.Designer)
}

func (d DPIDR) String() string {
	return fmt.Sprintf("0x%08X (%s DPv%d, part 0x%02X, rev %d)",
		d.Raw, d.DesignerName(), d.Version, d.PartNo, d.Revision)
}
