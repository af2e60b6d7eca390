package node

import "fmt"

// State is the node protocol state.
type State int

// States
const (
	WaitSetAddr     State = iota // unassigned, waiting for SET_ADDR from upstream
	SendAck                      // acknowledge the adopted address
	SendReport                   // report to the AP
	WaitReportAck                // waiting for REPORT_ACK from upstream
	SetNextAddr                  // provision the next node downstream
	WaitNextAddrAck              // waiting for ACK from downstream
	WaitPacket                   // steady relay state
)

var stateNames = [...]string{
	WaitSetAddr:     "WAIT_SET_ADDR",
	SendAck:         "SEND_ACK",
	SendReport:      "SEND_REPORT",
	WaitReportAck:   "WAIT_REPORT_ACK",
	SetNextAddr:     "SET_NEXT_ADDR",
	WaitNextAddrAck: "WAIT_NEXT_ADDR_ACK",
	WaitPacket:      "WAIT_PACKET",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Source tells which links a state reads from in one iteration.
type Source int

// Sources
const (
	// SourceNone states only emit.
	SourceNone Source = iota
	// SourceUpstream states poll the upstream link.
	SourceUpstream
	// SourceDownstream states poll the downstream link.
	SourceDownstream
	// SourceBoth polls downstream then upstream, in that order.
	SourceBoth
)

// Source returns the links polled in this state.
func (s State) Source() Source {
	switch s {
	case WaitSetAddr, WaitReportAck:
		return SourceUpstream
	case WaitNextAddrAck:
		return SourceDownstream
	case WaitPacket:
		return SourceBoth
	}
	return SourceNone
}
