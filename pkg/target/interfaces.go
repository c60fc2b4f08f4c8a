package target

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/gousb"
)

// Adapter names accepted by Open.
const (
	AdapterSim      = "sim"
	AdapterCMSISDAP = "cmsis-dap"
)

// InterfaceInfo describes a memory port the host can open.
type InterfaceInfo struct {
	Adapter     string
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	label := i.Description
	if label == "" {
		label = fmt.Sprintf("%s (%04X:%04X)", i.Adapter, i.VendorID, i.ProductID)
	}
	if i.Serial != "" {
		label += " [" + i.Serial + "]"
	}
	return label
}

type knownProbe struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownCMSISDAPProbes = []knownProbe{
	{VendorID: VendorIDRaspberryPi, ProductID: ProductIDCMSISDAP, Description: "Raspberry Pi Debug Probe"},
	{VendorID: 0x0d28, ProductID: 0x0204, Description: "DAPLink CMSIS-DAP"},
	{VendorID: 0x1366, ProductID: 0x0101, Description: "SEGGER J-Link CMSIS-DAP"},
	{VendorID: 0x03eb, ProductID: 0x2175, Description: "Microchip nEDBG CMSIS-DAP"},
}

func classifyProbe(desc *gousb.DeviceDesc) (InterfaceInfo, bool) {
	for _, known := range knownCMSISDAPProbes {
		if uint16(desc.Vendor) == known.VendorID && uint16(desc.Product) == known.ProductID {
			return InterfaceInfo{
				Adapter:     AdapterCMSISDAP,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
			}, true
		}
	}
	return InterfaceInfo{}, false
}

// DiscoverInterfaces lists connected CMSIS-DAP probes. The simulator entry
// is always last so callers can run without hardware.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil {
			return false
		}
		_, ok := classifyProbe(desc)
		return ok
	})
	for _, dev := range devs {
		info, _ := classifyProbe(dev.Desc)
		info.Serial, _ = dev.SerialNumber()
		results = append(results, info)
		dev.Close()
	}
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return results, fmt.Errorf("target: failed to enumerate probes: %w", err)
	}

	results = append(results, InterfaceInfo{
		Adapter:     AdapterSim,
		Description: "Simulator (no hardware)",
	})
	return results, ctx.Err()
}

// Options selects and configures the memory port opened by Open.
type Options struct {
	Adapter string
	VID     uint16
	PID     uint16
	ClockHz uint32
}

// Open returns the memory port described by opts.
func Open(ctx context.Context, opts Options) (Memory, error) {
	switch strings.ToLower(opts.Adapter) {
	case "", AdapterSim, "simulator":
		return NewSimMemory(), nil
	case AdapterCMSISDAP:
		vid, pid := opts.VID, opts.PID
		if vid == 0 && pid == 0 {
			vid, pid = VendorIDRaspberryPi, ProductIDCMSISDAP
		}
		clock := opts.ClockHz
		if clock == 0 {
			clock = 1_000_000
		}
		m, err := NewDAPMemory(ctx, vid, pid, clock)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, opts.Adapter)
	}
}
