package node

import (
	"github.com/robotalks/chainlink/pkg/chain/frame"
)

// Link identifies one of the two node links.
type Link int

// Links
const (
	NoLink Link = iota
	Upstream
	Downstream
)

// String implements fmt.Stringer.
func (l Link) String() string {
	switch l {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	}
	return "none"
}

// Context is the per-node protocol context carried between steps.
type Context struct {
	// Local is the adopted address, UnassignedAddr before SET_ADDR.
	Local frame.Addr
}

// NewContext creates the context of an unassigned node.
func NewContext() Context {
	return Context{Local: frame.UnassignedAddr}
}

// Input is what one poll produced. A nil Packet is a framing miss
// (timeout, short read or no header), which drives the timeout
// transitions.
type Input struct {
	From   Link
	Packet *frame.Packet
	// Now is the tick stamped on emitted packets.
	Now uint32
}

// Transition is the result of a Step.
type Transition struct {
	Next    State
	Context Context
	// Out is the packet to send on Target, nil if nothing is sent.
	Out    *frame.Packet
	Target Link
}

// Step computes the transition of state s on input in. It has no side
// effects: the caller applies the new context and sends Out.
func Step(s State, c Context, in Input) Transition {
	t := Transition{Next: s, Context: c}
	pkt := in.Packet
	switch s {
	case WaitSetAddr:
		if in.From == Upstream && pkt != nil && pkt.Command == frame.SetAddr {
			t.adopt(pkt)
			t.Next = SendAck
		}
	case SendAck:
		// dst is the adopted address.
		t.send(Upstream, frame.New(frame.Ack, frame.APAddr, c.Local, in.Now))
		t.Next = SendReport
	case SendReport:
		t.send(Upstream, frame.New(frame.Report, c.Local, frame.APAddr, in.Now))
		t.Next = WaitReportAck
	case WaitReportAck:
		switch {
		case pkt == nil || in.From != Upstream:
			t.Next = SendReport
		case pkt.Command == frame.SetAddr:
			// the ACK was lost, the parent asks again.
			t.adopt(pkt)
			t.Next = SendAck
		case pkt.Command == frame.ReportAck:
			t.Next = SetNextAddr
		}
	case SetNextAddr:
		t.send(Downstream, frame.New(frame.SetAddr, c.Local, frame.NextAddr(c.Local), in.Now))
		t.Next = WaitNextAddrAck
	case WaitNextAddrAck:
		switch {
		case pkt == nil || in.From != Downstream:
			t.Next = SetNextAddr
		case pkt.Command == frame.SetAddr:
			t.Next = SetNextAddr
		case pkt.Command == frame.Ack:
			t.Next = WaitPacket
		}
	case WaitPacket:
		if pkt == nil {
			break
		}
		switch {
		case in.From == Downstream && pkt.Command == frame.Report:
			t.send(Upstream, frame.New(frame.Report, pkt.Src, frame.APAddr, in.Now))
		case in.From == Upstream && pkt.Command == frame.ReportAck:
			t.send(Downstream, frame.New(frame.ReportAck, pkt.Src, relayAckDst(pkt), pkt.Data))
		}
	}
	return t
}

func (t *Transition) adopt(pkt *frame.Packet) {
	t.Context.Local = pkt.Dst
}

func (t *Transition) send(target Link, pkt *frame.Packet) {
	t.Out, t.Target = pkt, target
}

// relayAckDst rebuilds the destination of a relayed REPORT_ACK. Y is
// taken from src.x, not dst.y, which is how deployed nodes behave;
// receivers never look at the destination so it is kept as is.
func relayAckDst(pkt *frame.Packet) frame.Addr {
	return frame.Addr{X: pkt.Dst.X, Y: pkt.Src.X}
}
