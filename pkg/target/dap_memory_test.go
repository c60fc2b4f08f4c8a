package target

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"
)

const fakeIDCODE = 0x2BA01477

// fakeProbe emulates a CMSIS-DAP probe wired to a Cortex-M debug port with
// a single MEM-AP.
type fakeProbe struct {
	mem      map[uint32]byte
	ctrlStat uint32
	csw      uint32
	tar      uint32

	noPowerAck bool
	faultAddr  uint32
	jtagOnly   bool
	packetSize uint16

	cmds   [][]byte
	closed bool
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{mem: make(map[uint32]byte), packetSize: 64}
}

func (f *fakeProbe) PacketSize() int { return 64 }

func (f *fakeProbe) Close() error {
	f.closed = true
	return nil
}

func (f *fakeProbe) WriteRead(cmd []byte) ([]byte, error) {
	f.cmds = append(f.cmds, append([]byte(nil), cmd...))

	switch cmd[0] {
	case CmdInfo:
		if cmd[1] == InfoPacketSize {
			return []byte{CmdInfo, 2, byte(f.packetSize), byte(f.packetSize >> 8)}, nil
		}
		s := "fake"
		return append([]byte{CmdInfo, byte(len(s))}, s...), nil
	case CmdConnect:
		if f.jtagOnly && cmd[1] == PortSWD {
			return []byte{CmdConnect, 0}, nil
		}
		return []byte{CmdConnect, cmd[1]}, nil
	case CmdDisconnect, CmdSWJClock, CmdSWJSequence, CmdTransferConfigure:
		return []byte{cmd[0], StatusOK}, nil
	case CmdTransfer:
		return f.transfer(cmd), nil
	}
	return []byte{cmd[0], StatusError}, nil
}

func (f *fakeProbe) transfer(cmd []byte) []byte {
	count := int(cmd[2])
	resp := []byte{CmdTransfer, 0, AckOK}

	off := 3
	for i := 0; i < count; i++ {
		req := cmd[off]
		off++
		ap, read, reg := req&reqAPnDP != 0, req&reqRnW != 0, req&0x0C

		var w uint32
		if !read {
			w = binary.LittleEndian.Uint32(cmd[off:])
			off += 4
		}

		v, ack := f.access(ap, read, reg, w)
		if ack != AckOK {
			resp[1], resp[2] = byte(i), ack
			return resp
		}
		if read {
			resp = binary.LittleEndian.AppendUint32(resp, v)
		}
	}
	resp[1] = byte(count)
	return resp
}

func (f *fakeProbe) access(ap, read bool, reg byte, w uint32) (uint32, byte) {
	if !ap {
		switch {
		case read && reg == DPIDCODE:
			return fakeIDCODE, AckOK
		case read && reg == DPCTRLSTAT:
			v := f.ctrlStat
			if !f.noPowerAck && v&(CtrlCSYSPWRUPREQ|CtrlCDBGPWRUPREQ) != 0 {
				v |= CtrlCSYSPWRUPACK | CtrlCDBGPWRUPACK
			}
			return v, AckOK
		case !read && reg == DPCTRLSTAT:
			f.ctrlStat = w
		}
		return 0, AckOK
	}

	switch reg {
	case APCSW:
		if read {
			return f.csw, AckOK
		}
		f.csw = w
	case APTAR:
		if read {
			return f.tar, AckOK
		}
		f.tar = w
	case APDRW:
		if f.faultAddr != 0 && f.tar == f.faultAddr {
			return 0, AckFault
		}
		lane := 8 * (f.tar % 4)
		if f.csw&0x07 == CSWSize32 {
			if read {
				var v uint32
				for i := uint32(0); i < 4; i++ {
					v |= uint32(f.mem[f.tar+i]) << (8 * i)
				}
				return v, AckOK
			}
			for i := uint32(0); i < 4; i++ {
				f.mem[f.tar+i] = byte(w >> (8 * i))
			}
			return 0, AckOK
		}
		if read {
			return uint32(f.mem[f.tar]) << lane, AckOK
		}
		f.mem[f.tar] = byte(w >> lane)
	}
	return 0, AckOK
}

// cswWrites counts CSW writes issued after the first skip commands.
func (f *fakeProbe) cswWrites(skip int) int {
	n := 0
	for _, cmd := range f.cmds[skip:] {
		if cmd[0] != CmdTransfer {
			continue
		}
		off := 3
		for i := 0; i < int(cmd[2]); i++ {
			req := cmd[off]
			off++
			if req&reqRnW == 0 {
				if req == reqAPnDP|APCSW {
					n++
				}
				off += 4
			}
		}
	}
	return n
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openFake(t *testing.T, f *fakeProbe) *DAPMemory {
	t.Helper()
	m, err := newDAPMemory(context.Background(), f, 1_000_000, quietLogger())
	if err != nil {
		t.Fatalf("Failed to bring up debug port: %v", err)
	}
	return m
}

func TestDAPMemoryInit(t *testing.T) {
	f := newFakeProbe()
	m := openFake(t, f)

	if m.IDCODE().Raw != fakeIDCODE {
		t.Errorf("Expected IDCODE 0x%08X, got %s", uint32(fakeIDCODE), m.IDCODE())
	}
	if m.Info().Product != "fake" {
		t.Errorf("Expected product 'fake', got %q", m.Info().Product)
	}

	// Five DAP_Info queries precede the connect.
	connect := f.cmds[5]
	if !bytes.Equal(connect, []byte{CmdConnect, PortSWD}) {
		t.Errorf("Expected SWD connect, got % X", connect)
	}

	var seqs [][]byte
	for _, cmd := range f.cmds {
		if cmd[0] == CmdSWJSequence {
			seqs = append(seqs, cmd)
		}
	}
	if len(seqs) != 4 {
		t.Fatalf("Expected 4 SWJ sequences, got %d", len(seqs))
	}
	if !bytes.Equal(seqs[1], []byte{CmdSWJSequence, 16, 0x9E, 0xE7}) {
		t.Errorf("Expected JTAG-to-SWD select code, got % X", seqs[1])
	}

	if f.ctrlStat != CtrlCSYSPWRUPREQ|CtrlCDBGPWRUPREQ {
		t.Errorf("Expected power-up request in CTRL/STAT, got 0x%08X", f.ctrlStat)
	}
}

func TestDAPMemoryPacketSize(t *testing.T) {
	tests := []struct {
		name     string
		reported uint16
		want     int
	}{
		{"smaller than endpoint", 32, 32},
		{"endpoint bounds larger claim", 512, 64},
		{"zero keeps endpoint size", 0, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeProbe()
			f.packetSize = tt.reported
			m := openFake(t, f)

			if m.protocol.PacketSize != tt.want {
				t.Errorf("Expected packet size %d, got %d", tt.want, m.protocol.PacketSize)
			}
			if m.Info().PacketSize != int(tt.reported) {
				t.Errorf("Expected reported size %d, got %d", tt.reported, m.Info().PacketSize)
			}

			// Memory access still fits the negotiated packet.
			if err := m.WriteMemory(context.Background(), 0x20000001, []byte{1, 2, 3, 4, 5}); err != nil {
				t.Fatalf("Failed to write: %v", err)
			}
		})
	}
}

func TestDAPMemoryJTAGOnlyProbe(t *testing.T) {
	f := newFakeProbe()
	f.jtagOnly = true

	_, err := newDAPMemory(context.Background(), f, 1_000_000, quietLogger())
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("Expected ErrNotImplemented, got %v", err)
	}
}

func TestDAPMemoryPowerUpTimeout(t *testing.T) {
	f := newFakeProbe()
	f.noPowerAck = true

	_, err := newDAPMemory(context.Background(), f, 1_000_000, quietLogger())
	if err == nil {
		t.Fatal("Expected power-up error")
	}
}

func TestDAPMemoryRoundTrip(t *testing.T) {
	f := newFakeProbe()
	m := openFake(t, f)
	ctx := context.Background()

	data := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}
	if err := m.WriteMemory(ctx, 0x20000011, data); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	for i, b := range data {
		if got := f.mem[0x20000011+uint32(i)]; got != b {
			t.Errorf("Byte %d: expected 0x%02X, got 0x%02X", i, b, got)
		}
	}

	got, err := m.ReadMemory(ctx, 0x20000011, len(data))
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected % X, got % X", data, got)
	}
}

func TestDAPMemoryWordAccessKeepsCSW(t *testing.T) {
	f := newFakeProbe()
	m := openFake(t, f)
	before := len(f.cmds)

	f.mem[0x20000000] = 0xEF
	f.mem[0x20000001] = 0xBE
	f.mem[0x20000002] = 0xAD
	f.mem[0x20000003] = 0xDE

	got, err := m.ReadMemory(context.Background(), 0x20000000, 8)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if !bytes.Equal(got[:4], []byte{0xEF, 0xBE, 0xAD, 0xDE}) {
		t.Errorf("Unexpected word bytes % X", got[:4])
	}
	if n := f.cswWrites(before); n != 1 {
		t.Errorf("Expected a single CSW write, got %d", n)
	}
	if f.csw&0x07 != CSWSize32 {
		t.Errorf("Expected word-sized CSW, got 0x%08X", f.csw)
	}
}

func TestDAPMemoryFault(t *testing.T) {
	f := newFakeProbe()
	f.faultAddr = 0x30000000
	m := openFake(t, f)

	_, err := m.ReadMemory(context.Background(), 0x30000000, 4)
	var terr *TransferError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected *TransferError, got %v", err)
	}
	if terr.Ack != AckFault {
		t.Errorf("Expected FAULT, got 0x%02X", terr.Ack)
	}

	// The next access must restore CSW since the failed one may not have.
	before := len(f.cmds)
	if _, err := m.ReadMemory(context.Background(), 0x20000000, 4); err != nil {
		t.Fatalf("Failed to read after fault: %v", err)
	}
	if n := f.cswWrites(before); n != 1 {
		t.Errorf("Expected CSW to be rewritten after a fault, got %d writes", n)
	}
}

func TestDAPMemoryCanceled(t *testing.T) {
	m := openFake(t, newFakeProbe())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.ReadMemory(ctx, 0x20000000, 4); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDAPMemoryClose(t *testing.T) {
	f := newFakeProbe()
	m := openFake(t, f)

	if err := m.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	if !f.closed {
		t.Error("Transport was not closed")
	}
	if last := f.cmds[len(f.cmds)-1]; last[0] != CmdDisconnect {
		t.Errorf("Expected disconnect as last command, got 0x%02X", last[0])
	}
	if _, err := m.ReadMemory(context.Background(), 0, 4); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}
