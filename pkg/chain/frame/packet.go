package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Wire constants.
const (
	// Magic is the header value every frame starts with.
	Magic uint16 = 0xbeef
	// Size is the fixed width of an encoded frame.
	Size = 11
)

// Command is the frame command code. Values are not range checked when
// decoding.
type Command byte

// Commands
const (
	SetAddr   Command = 0
	Ack       Command = 1
	Report    Command = 2
	Bypass    Command = 3 // reserved, never sent
	ReportAck Command = 4
)

var commandNames = map[Command]string{
	SetAddr:   "SET_ADDR",
	Ack:       "ACK",
	Report:    "REPORT",
	Bypass:    "BYPASS",
	ReportAck: "REPORT_ACK",
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", byte(c))
}

// Packet is a decoded frame.
type Packet struct {
	Header  uint16
	Command Command
	Src     Addr
	Dst     Addr
	Data    uint32
}

// New builds a packet with the magic header set.
func New(cmd Command, src, dst Addr, data uint32) *Packet {
	return &Packet{Header: Magic, Command: cmd, Src: src, Dst: dst, Data: data}
}

// String implements fmt.Stringer.
func (p *Packet) String() string {
	return fmt.Sprintf("%s{src=%s dst=%s data=%d}", p.Command, p.Src, p.Dst, p.Data)
}

// Encode serializes the packet in wire order, multi-byte fields in
// little-endian.
func (p *Packet) Encode() []byte {
	b := make([]byte, Size)
	p.put(b)
	return b
}

// WriteTo writes the encoded packet.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	var b [Size]byte
	p.put(b[:])
	n, err := w.Write(b[:])
	return int64(n), err
}

func (p *Packet) put(b []byte) {
	binary.LittleEndian.PutUint16(b[0:], p.Header)
	b[2] = byte(p.Command)
	b[3], b[4] = p.Src.X, p.Src.Y
	b[5], b[6] = p.Dst.X, p.Dst.Y
	binary.LittleEndian.PutUint32(b[7:], p.Data)
}

func unpack(b []byte) *Packet {
	return &Packet{
		Header:  binary.LittleEndian.Uint16(b[0:]),
		Command: Command(b[2]),
		Src:     Addr{X: b[3], Y: b[4]},
		Dst:     Addr{X: b[5], Y: b[6]},
		Data:    binary.LittleEndian.Uint32(b[7:]),
	}
}
