package target

import (
	"fmt"
	"log/slog"

	"github.com/google/gousb"
)

const (
	// Raspberry Pi debug probe USB identifiers
	VendorIDRaspberryPi = 0x2E8A
	ProductIDCMSISDAP   = 0x000C

	// Default packet size for CMSIS-DAP v2 full-speed probes
	DefaultPacketSize = 64
)

// Transport moves one CMSIS-DAP command and its response.
type Transport interface {
	WriteRead(cmd []byte) ([]byte, error)
	PacketSize() int
	Close() error
}

// USBTransport talks to a CMSIS-DAP v2 probe over its vendor bulk endpoints.
type USBTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
}

type autoDetacher interface {
	SetAutoDetach(bool) error
}

// detachKernelDriver lets libusb unbind a kernel driver from the probe while
// its interface is claimed. Not supported on every platform, so a failure is
// only logged.
func detachKernelDriver(dev autoDetacher, log *slog.Logger) {
	if err := dev.SetAutoDetach(true); err != nil {
		log.Debug("USB auto-detach unavailable", "error", err)
	}
}

// NewUSBTransport opens the first probe matching vid:pid
func NewUSBTransport(vid, pid uint16) (*USBTransport, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("target: USB error: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("target: probe not found (VID:0x%04X PID:0x%04X)", vid, pid)
	}

	detachKernelDriver(dev, slog.Default())

	t := &USBTransport{
		ctx:        ctx,
		dev:        dev,
		packetSize: DefaultPacketSize,
	}
	if err := t.claimInterface(); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// claimInterface claims the vendor-class interface carrying the DAP endpoints.
func (t *USBTransport) claimInterface() error {
	cfg, err := t.dev.Config(1)
	if err != nil {
		return fmt.Errorf("target: failed to get config: %w", err)
	}
	t.cfg = cfg

	num := 0
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 && intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			num = intf.Number
			break
		}
	}

	intf, err := cfg.Interface(num, 0)
	if err != nil {
		return fmt.Errorf("target: failed to claim interface %d: %w", num, err)
	}
	t.intf = intf

	return t.findEndpoints()
}

func (t *USBTransport) findEndpoints() error {
	var outNum, inNum int
	for _, ep := range t.intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && outNum == 0:
			outNum = ep.Number
		case ep.Direction == gousb.EndpointDirectionIn && inNum == 0:
			inNum = ep.Number
			t.packetSize = ep.MaxPacketSize
		}
	}
	if outNum == 0 {
		return fmt.Errorf("target: bulk OUT endpoint not found")
	}
	if inNum == 0 {
		return fmt.Errorf("target: bulk IN endpoint not found")
	}

	epOut, err := t.intf.OutEndpoint(outNum)
	if err != nil {
		return fmt.Errorf("target: failed to open OUT endpoint: %w", err)
	}
	epIn, err := t.intf.InEndpoint(inNum)
	if err != nil {
		return fmt.Errorf("target: failed to open IN endpoint: %w", err)
	}
	t.epOut, t.epIn = epOut, epIn
	return nil
}

// WriteRead performs a command/response transaction
func (t *USBTransport) WriteRead(cmd []byte) ([]byte, error) {
	if _, err := t.epOut.Write(cmd); err != nil {
		return nil, fmt.Errorf("target: USB write failed: %w", err)
	}

	resp := make([]byte, t.packetSize)
	n, err := t.epIn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("target: USB read failed: %w", err)
	}
	return resp[:n], nil
}

// PacketSize returns the maximum command size accepted by the probe.
func (t *USBTransport) PacketSize() int {
	return t.packetSize
}

// Close releases USB resources
func (t *USBTransport) Close() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}
