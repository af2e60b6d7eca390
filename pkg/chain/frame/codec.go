package frame

import "encoding/binary"

// Result is the outcome of scanning a buffer. A nil Packet means no
// structurally valid frame was found.
type Result struct {
	Packet *Packet
	Offset int
}

// NoMatch is the Result when nothing matches.
var NoMatch = Result{Offset: -1}

// IsMatch indicates a packet was found.
func (r Result) IsMatch() bool {
	return r.Packet != nil
}

// Decode scans buf from the lowest offset and returns the first position
// where the magic header appears with a whole frame after it. The
// command and payload are not validated.
func Decode(buf []byte) Result {
	for off := 0; off+Size <= len(buf); off++ {
		if binary.LittleEndian.Uint16(buf[off:]) == Magic {
			return Result{Packet: unpack(buf[off : off+Size]), Offset: off}
		}
	}
	return NoMatch
}

// Encode serializes pkt, see Packet.Encode.
func Encode(pkt *Packet) []byte {
	return pkt.Encode()
}
