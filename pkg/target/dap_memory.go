package target

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ProbeInfo holds the strings a probe reports through DAP_Info.
type ProbeInfo struct {
	Vendor       string
	Product      string
	SerialNumber string
	Firmware     string
	// PacketSize is the probe's reported DAP packet size, zero if unknown.
	PacketSize int
}

// powerUpRetries bounds the CTRL/STAT polling after a power-up request.
const powerUpRetries = 100

// DAPMemory reads and writes target memory through the MEM-AP of an SWD
// target attached to a CMSIS-DAP probe.
type DAPMemory struct {
	transport Transport
	protocol  *DAPProtocol
	log       *slog.Logger

	info    ProbeInfo
	idcode  uint32
	csw     uint32
	cswSet  bool
	clockHz uint32

	mu sync.Mutex
}

// NewDAPMemory opens the probe vid:pid over USB and brings up the debug port.
func NewDAPMemory(ctx context.Context, vid, pid uint16, clockHz uint32) (*DAPMemory, error) {
	transport, err := NewUSBTransport(vid, pid)
	if err != nil {
		return nil, err
	}
	m, err := newDAPMemory(ctx, transport, clockHz, slog.Default())
	if err != nil {
		transport.Close()
		return nil, err
	}
	return m, nil
}

func newDAPMemory(ctx context.Context, t Transport, clockHz uint32, log *slog.Logger) (*DAPMemory, error) {
	m := &DAPMemory{
		transport: t,
		protocol:  NewDAPProtocol(t.PacketSize()),
		log:       log,
		clockHz:   clockHz,
	}
	if err := m.init(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DAPMemory) init(ctx context.Context) error {
	m.queryInfo()

	resp, err := m.transport.WriteRead(m.protocol.EncodeConnect(PortSWD))
	if err != nil {
		return err
	}
	port, err := m.protocol.DecodeConnect(resp)
	if err != nil {
		return err
	}
	if port != PortSWD {
		return fmt.Errorf("target: probe connected port %d, want SWD: %w", port, ErrNotImplemented)
	}

	if err := m.command(CmdSWJClock, m.protocol.EncodeSetClock(m.clockHz)); err != nil {
		return err
	}
	if err := m.command(CmdTransferConfigure, m.protocol.EncodeTransferConfigure(0, 64, 0)); err != nil {
		return err
	}
	if err := m.switchToSWD(); err != nil {
		return err
	}

	vals, err := m.transfer(ctx, DPRead(DPIDCODE))
	if err != nil {
		return fmt.Errorf("target: failed to read DP IDCODE: %w", err)
	}
	m.idcode = vals[0]

	if _, err := m.transfer(ctx,
		DPWrite(DPABORT, AbortClearAll),
		DPWrite(DPSELECT, 0),
		DPWrite(DPCTRLSTAT, CtrlCSYSPWRUPREQ|CtrlCDBGPWRUPREQ),
	); err != nil {
		return fmt.Errorf("target: failed to request power-up: %w", err)
	}

	for i := 0; ; i++ {
		vals, err := m.transfer(ctx, DPRead(DPCTRLSTAT))
		if err != nil {
			return fmt.Errorf("target: failed to read CTRL/STAT: %w", err)
		}
		const acks = CtrlCSYSPWRUPACK | CtrlCDBGPWRUPACK
		if vals[0]&acks == acks {
			break
		}
		if i == powerUpRetries {
			return fmt.Errorf("target: debug power-up not acknowledged (CTRL/STAT 0x%08X)", vals[0])
		}
	}

	m.log.Debug("SWD debug port up",
		"dpidr", ParseDPIDR(m.idcode).String(),
		"probe", m.info.Product,
		"clock_hz", m.clockHz)
	return nil
}

// queryInfo retrieves descriptive strings and the packet size from the
// probe; failures are not fatal since some firmwares omit them.
func (m *DAPMemory) queryInfo() {
	get := func(id byte) string {
		resp, err := m.transport.WriteRead(m.protocol.EncodeInfo(id))
		if err != nil {
			return ""
		}
		s, _ := m.protocol.DecodeInfo(resp)
		return s
	}
	m.info = ProbeInfo{
		Vendor:       get(InfoVendorID),
		Product:      get(InfoProductID),
		SerialNumber: get(InfoSerialNum),
		Firmware:     get(InfoFirmwareVer),
	}

	resp, err := m.transport.WriteRead(m.protocol.EncodeInfo(InfoPacketSize))
	if err != nil {
		return
	}
	n, err := m.protocol.DecodePacketSize(resp)
	if err != nil || n <= 0 {
		m.log.Debug("probe packet size unavailable", "error", err)
		return
	}
	m.info.PacketSize = n
	// The transport buffer bounds responses even if the probe claims more.
	if n < m.protocol.PacketSize {
		m.protocol.PacketSize = n
	}
}

// switchToSWD sends line reset, the JTAG-to-SWD select code 0xE79E, a second
// line reset and idle cycles.
func (m *DAPMemory) switchToSWD() error {
	reset := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	seqs := []struct {
		bits int
		data []byte
	}{
		{56, reset},
		{16, []byte{0x9E, 0xE7}},
		{56, reset},
		{8, []byte{0x00}},
	}
	for _, s := range seqs {
		cmd, err := m.protocol.EncodeSWJSequence(s.bits, s.data)
		if err != nil {
			return err
		}
		if err := m.command(CmdSWJSequence, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (m *DAPMemory) command(id byte, cmd []byte) error {
	resp, err := m.transport.WriteRead(cmd)
	if err != nil {
		return err
	}
	return m.protocol.DecodeStatus(id, resp)
}

func (m *DAPMemory) transfer(ctx context.Context, reqs ...TransferRequest) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd, err := m.protocol.EncodeTransfer(reqs)
	if err != nil {
		return nil, err
	}
	resp, err := m.transport.WriteRead(cmd)
	if err != nil {
		return nil, err
	}
	return m.protocol.DecodeTransfer(resp, reqs)
}

// setCSW returns the CSW write needed for the access size, if any.
func (m *DAPMemory) setCSW(size uint32) []TransferRequest {
	csw := CSWDefault | CSWAddrIncOff | size
	if m.cswSet && m.csw == csw {
		return nil
	}
	m.csw, m.cswSet = csw, true
	return []TransferRequest{APWrite(APCSW, csw)}
}

// Info returns the probe description.
func (m *DAPMemory) Info() ProbeInfo { return m.info }

// IDCODE returns the debug port identification read at connect.
func (m *DAPMemory) IDCODE() DPIDR { return ParseDPIDR(m.idcode) }

// ReadMemory implements Memory. Aligned words are read with 32-bit
// accesses, the unaligned head and tail one byte lane at a time.
func (m *DAPMemory) ReadMemory(ctx context.Context, addr uint32, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport == nil {
		return nil, ErrClosed
	}

	out := make([]byte, 0, n)
	for len(out) < n {
		a := addr + uint32(len(out))
		if a%4 == 0 && n-len(out) >= 4 {
			reqs := append(m.setCSW(CSWSize32), APWrite(APTAR, a), APRead(APDRW))
			vals, err := m.transfer(ctx, reqs...)
			if err != nil {
				m.cswSet = false
				return nil, fmt.Errorf("target: read at 0x%08X: %w", a, err)
			}
			v := vals[0]
			out = append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
			continue
		}

		reqs := append(m.setCSW(CSWSize8), APWrite(APTAR, a), APRead(APDRW))
		vals, err := m.transfer(ctx, reqs...)
		if err != nil {
			m.cswSet = false
			return nil, fmt.Errorf("target: read at 0x%08X: %w", a, err)
		}
		out = append(out, byte(vals[0]>>(8*(a%4))))
	}
	return out, nil
}

// WriteMemory implements Memory.
func (m *DAPMemory) WriteMemory(ctx context.Context, addr uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport == nil {
		return ErrClosed
	}

	for i := 0; i < len(data); {
		a := addr + uint32(i)
		var reqs []TransferRequest
		if a%4 == 0 && len(data)-i >= 4 {
			v := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24
			reqs = append(m.setCSW(CSWSize32), APWrite(APTAR, a), APWrite(APDRW, v))
			i += 4
		} else {
			v := uint32(data[i]) << (8 * (a % 4))
			reqs = append(m.setCSW(CSWSize8), APWrite(APTAR, a), APWrite(APDRW, v))
			i++
		}
		if _, err := m.transfer(ctx, reqs...); err != nil {
			m.cswSet = false
			return fmt.Errorf("target: write at 0x%08X: %w", a, err)
		}
	}
	return nil
}

// Close disconnects the probe and releases the transport.
func (m *DAPMemory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport == nil {
		return nil
	}
	if _, err := m.transport.WriteRead(m.protocol.EncodeDisconnect()); err != nil {
		m.log.Warn("DAP disconnect failed", "error", err)
	}
	err := m.transport.Close()
	m.transport = nil
	return err
}
