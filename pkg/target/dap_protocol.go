package target

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP Command IDs
const (
	CmdInfo              = 0x00
	CmdConnect           = 0x02
	CmdDisconnect        = 0x03
	CmdTransferConfigure = 0x04
	CmdTransfer          = 0x05
	CmdSWJClock          = 0x11
	CmdSWJSequence       = 0x12
)

// DAP_Info Info IDs
const (
	InfoVendorID    = 0x01
	InfoProductID   = 0x02
	InfoSerialNum   = 0x03
	InfoFirmwareVer = 0x04
	InfoPacketSize  = 0xFF
)

// Connection ports
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

// Status codes
const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// SWD acknowledge values reported by DAP_Transfer.
const (
	AckOK       = 0x01
	AckWait     = 0x02
	AckFault    = 0x04
	AckNoAck    = 0x07
	AckMismatch = 0x10
)

// DP registers (A[3:2])
const (
	DPIDCODE   = 0x00 // read
	DPABORT    = 0x00 // write
	DPCTRLSTAT = 0x04
	DPSELECT   = 0x08
	DPRDBUFF   = 0x0C
)

// MEM-AP registers, bank 0
const (
	APCSW = 0x00
	APTAR = 0x04
	APDRW = 0x0C
)

// CTRL/STAT power bits
const (
	CtrlCSYSPWRUPREQ = 1 << 30
	CtrlCDBGPWRUPREQ = 1 << 28
	CtrlCSYSPWRUPACK = 1 << 31
	CtrlCDBGPWRUPACK = 1 << 29
)

// ABORT bits clearing every sticky flag.
const AbortClearAll = 0x1E

// CSW fields
const (
	CSWSize8      = 0x00
	CSWSize16     = 0x01
	CSWSize32     = 0x02
	CSWAddrIncOff = 0x00
	CSWDefault    = 0x23000000 // HPROT master debug, privileged data access
)

// Transfer request bits
const (
	reqAPnDP = 1 << 0
	reqRnW   = 1 << 1
)

// TransferRequest is one DP or AP register access inside a DAP_Transfer.
type TransferRequest struct {
	AP    bool
	Read  bool
	Reg   byte // A[3:2], one of the DP*/AP* constants
	Value uint32
}

// DPRead builds a DP register read.
func DPRead(reg byte) TransferRequest { return TransferRequest{Read: true, Reg: reg} }

// DPWrite builds a DP register write.
func DPWrite(reg byte, v uint32) TransferRequest { return TransferRequest{Reg: reg, Value: v} }

// APRead builds an AP register read in the currently selected bank.
func APRead(reg byte) TransferRequest { return TransferRequest{AP: true, Read: true, Reg: reg} }

// APWrite builds an AP register write in the currently selected bank.
func APWrite(reg byte, v uint32) TransferRequest {
	return TransferRequest{AP: true, Reg: reg, Value: v}
}

// Byte returns the request byte as sent on the wire.
func (r TransferRequest) Byte() byte {
	b := r.Reg & 0x0C
	if r.AP {
		b |= reqAPnDP
	}
	if r.Read {
		b |= reqRnW
	}
	return b
}

// TransferError reports a DAP_Transfer that stopped early.
type TransferError struct {
	Ack       byte
	Completed int
	Requested int
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("target: transfer stopped after %d of %d requests: %s",
		e.Completed, e.Requested, ackString(e.Ack))
}

func ackString(ack byte) string {
	switch {
	case ack&AckMismatch != 0:
		return "value mismatch"
	case ack&0x07 == AckOK:
		return "OK"
	case ack&0x07 == AckWait:
		return "WAIT"
	case ack&0x07 == AckFault:
		return "FAULT"
	case ack&0x07 == AckNoAck:
		return "no ACK"
	default:
		return fmt.Sprintf("ack 0x%02X", ack)
	}
}

// DAPProtocol handles encoding/decoding of CMSIS-DAP commands
type DAPProtocol struct {
	PacketSize int
}

// NewDAPProtocol creates a new protocol handler
func NewDAPProtocol(packetSize int) *DAPProtocol {
	return &DAPProtocol{PacketSize: packetSize}
}

// EncodeInfo builds a DAP_Info command
func (p *DAPProtocol) EncodeInfo(infoID byte) []byte {
	return []byte{CmdInfo, infoID}
}

// DecodeInfo parses a DAP_Info response carrying a string
func (p *DAPProtocol) DecodeInfo(resp []byte) (string, error) {
	if err := expect(resp, CmdInfo, 2); err != nil {
		return "", err
	}
	length := int(resp[1])
	if len(resp) < 2+length {
		return "", fmt.Errorf("target: incomplete info string")
	}
	// Strings are NUL-terminated on most probes.
	s := resp[2 : 2+length]
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s), nil
}

// DecodePacketSize parses the response to DAP_Info(InfoPacketSize)
func (p *DAPProtocol) DecodePacketSize(resp []byte) (int, error) {
	if err := expect(resp, CmdInfo, 4); err != nil {
		return 0, err
	}
	if resp[1] != 2 {
		return 0, fmt.Errorf("target: packet size info has length %d", resp[1])
	}
	return int(binary.LittleEndian.Uint16(resp[2:4])), nil
}

// EncodeConnect builds a DAP_Connect command
func (p *DAPProtocol) EncodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

// DecodeConnect parses a DAP_Connect response
func (p *DAPProtocol) DecodeConnect(resp []byte) (byte, error) {
	if err := expect(resp, CmdConnect, 2); err != nil {
		return 0, err
	}
	if resp[1] == 0 {
		return 0, fmt.Errorf("target: connection failed")
	}
	return resp[1], nil
}

// EncodeDisconnect builds a DAP_Disconnect command
func (p *DAPProtocol) EncodeDisconnect() []byte {
	return []byte{CmdDisconnect}
}

// EncodeSetClock builds a DAP_SWJ_Clock command
func (p *DAPProtocol) EncodeSetClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

// EncodeSWJSequence builds a DAP_SWJ_Sequence command clocking bits out on
// SWDIO/TMS, LSB first. A count of 256 is encoded as 0.
func (p *DAPProtocol) EncodeSWJSequence(bits int, data []byte) ([]byte, error) {
	if bits <= 0 || bits > 256 {
		return nil, fmt.Errorf("target: sequence length %d out of range", bits)
	}
	need := (bits + 7) / 8
	if len(data) < need {
		return nil, fmt.Errorf("target: sequence needs %d bytes, got %d", need, len(data))
	}
	cmd := make([]byte, 2+need)
	cmd[0] = CmdSWJSequence
	cmd[1] = byte(bits) // 256 wraps to 0
	copy(cmd[2:], data[:need])
	return cmd, nil
}

// EncodeTransferConfigure builds a DAP_TransferConfigure command
func (p *DAPProtocol) EncodeTransferConfigure(idleCycles byte, waitRetry, matchRetry uint16) []byte {
	cmd := make([]byte, 6)
	cmd[0] = CmdTransferConfigure
	cmd[1] = idleCycles
	binary.LittleEndian.PutUint16(cmd[2:], waitRetry)
	binary.LittleEndian.PutUint16(cmd[4:], matchRetry)
	return cmd
}

// DecodeStatus parses the common [cmd, status] response
func (p *DAPProtocol) DecodeStatus(cmd byte, resp []byte) error {
	if err := expect(resp, cmd, 2); err != nil {
		return err
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("target: command 0x%02X failed with status 0x%02X", cmd, resp[1])
	}
	return nil
}

// EncodeTransfer builds a DAP_Transfer command for DAP index 0
func (p *DAPProtocol) EncodeTransfer(reqs []TransferRequest) ([]byte, error) {
	size := 3
	for _, r := range reqs {
		size++
		if !r.Read {
			size += 4
		}
	}
	if len(reqs) > 255 {
		return nil, fmt.Errorf("target: %d requests in one transfer", len(reqs))
	}
	if p.PacketSize > 0 && size > p.PacketSize {
		return nil, fmt.Errorf("target: transfer of %d bytes exceeds packet size %d", size, p.PacketSize)
	}

	cmd := make([]byte, size)
	cmd[0] = CmdTransfer
	cmd[1] = 0
	cmd[2] = byte(len(reqs))

	offset := 3
	for _, r := range reqs {
		cmd[offset] = r.Byte()
		offset++
		if !r.Read {
			binary.LittleEndian.PutUint32(cmd[offset:], r.Value)
			offset += 4
		}
	}
	return cmd, nil
}

// DecodeTransfer parses a DAP_Transfer response and returns the values of
// the read requests in order.
func (p *DAPProtocol) DecodeTransfer(resp []byte, reqs []TransferRequest) ([]uint32, error) {
	if err := expect(resp, CmdTransfer, 3); err != nil {
		return nil, err
	}

	count := int(resp[1])
	ack := resp[2]
	if count != len(reqs) || ack != AckOK {
		return nil, &TransferError{Ack: ack, Completed: count, Requested: len(reqs)}
	}

	var values []uint32
	offset := 3
	for _, r := range reqs {
		if !r.Read {
			continue
		}
		if offset+4 > len(resp) {
			return nil, fmt.Errorf("target: incomplete transfer data")
		}
		values = append(values, binary.LittleEndian.Uint32(resp[offset:]))
		offset += 4
	}
	return values, nil
}

func expect(resp []byte, cmd byte, minLen int) error {
	if len(resp) < minLen {
		return fmt.Errorf("target: response too short")
	}
	if resp[0] != cmd {
		return fmt.Errorf("target: invalid command ID: 0x%02X", resp[0])
	}
	return nil
}
