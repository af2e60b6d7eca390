// Package ap implements the aggregator at the root of the chain. It
// provisions the first node, then acknowledges and terminates the
// REPORTs relayed toward it, turning them into telemetry.
package ap

import (
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/chainlink/pkg/chain/frame"
	fx "github.com/robotalks/chainlink/pkg/framework"
	"github.com/robotalks/chainlink/pkg/telemetry"
)

// State is the aggregator state.
type State int

// States
const (
	Provision State = iota // send SET_ADDR to the first node
	WaitAck                // waiting for ACK of the first node
	Collect                // acknowledging reports
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Provision:
		return "PROVISION"
	case WaitAck:
		return "WAIT_ACK"
	case Collect:
		return "COLLECT"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Aggregator is the root of the chain, with a single downstream link.
// Like a node it's driven by one task and is not safe for concurrent
// use, except Table which can be read anytime.
type Aggregator struct {
	ID         string
	Downstream io.ReadWriter
	FirstAddr  frame.Addr
	ReadSize   int
	// Table keeps the last report per node.
	Table *telemetry.Table

	state State
	start time.Time
	buf   []byte
}

// DefaultFirstAddr is the address assigned to the first node.
var DefaultFirstAddr = frame.Addr{X: 1, Y: 0}

// New creates an Aggregator.
func New(id string, downstream io.ReadWriter) *Aggregator {
	return &Aggregator{
		ID:         id,
		Downstream: downstream,
		FirstAddr:  DefaultFirstAddr,
		ReadSize:   frame.Size,
		Table:      telemetry.NewTable(),
	}
}

// State gets the current state.
func (a *Aggregator) State() State {
	return a.state
}

// AddToLoop implements LoopAdder.
func (a *Aggregator) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvControl, a)
}

// Control implements Controller. Reports are posted as ReportMsg for
// the Flusher.
func (a *Aggregator) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if a.start.IsZero() {
		a.start = now
	}
	r, err := a.Poll(uint32(now.Sub(a.start)/time.Millisecond), now)
	if err != nil {
		return err
	}
	if r != nil {
		cc.PostMessage(&telemetry.ReportMsg{Report: *r})
	}
	return nil
}

// Poll runs one iteration with tick now, received is the local time
// stamped on reports. It returns the report terminated in this
// iteration, if any. A failed link read is returned as a fatal error.
func (a *Aggregator) Poll(now uint32, received time.Time) (*telemetry.Report, error) {
	if a.state == Provision {
		a.send(frame.New(frame.SetAddr, frame.APAddr, a.FirstAddr, now))
		a.moveTo(WaitAck)
		return nil, nil
	}

	pkt, err := a.receive()
	if err != nil {
		return nil, fx.Fatal(err)
	}
	switch a.state {
	case WaitAck:
		if pkt != nil && pkt.Command == frame.Ack {
			glog.Infof("chain provisioned, first node %s", a.FirstAddr)
			a.moveTo(Collect)
		} else {
			a.moveTo(Provision)
		}
	case Collect:
		if pkt != nil && pkt.Command == frame.Report {
			a.send(frame.New(frame.ReportAck, frame.APAddr, pkt.Src, now))
			r := &telemetry.Report{AP: a.ID, Node: pkt.Src, Tick: pkt.Data, Received: received}
			if rec := a.Table.Update(*r); rec.Count == 1 {
				glog.Infof("node %s joined", pkt.Src)
			}
			return r, nil
		}
	}
	return nil, nil
}

func (a *Aggregator) receive() (*frame.Packet, error) {
	size := a.ReadSize
	if size < frame.Size {
		size = frame.Size
	}
	if cap(a.buf) < size {
		a.buf = make([]byte, size)
	}
	buf := a.buf[:size]
	cnt, err := a.Downstream.Read(buf)
	if err != nil {
		glog.Errorf("downstream link lost: %v", err)
		return nil, err
	}
	r := frame.Decode(buf[:cnt])
	if r.IsMatch() {
		glog.V(2).Infof("RCV %s", r.Packet)
	}
	return r.Packet, nil
}

func (a *Aggregator) send(pkt *frame.Packet) {
	glog.V(2).Infof("SND %s", pkt)
	if _, err := pkt.WriteTo(a.Downstream); err != nil {
		glog.Warningf("send %s: %v", pkt.Command, err)
	}
}

func (a *Aggregator) moveTo(s State) {
	if s != a.state {
		glog.V(1).Infof("ap state %s -> %s", a.state, s)
		a.state = s
	}
}

// Close closes the downstream link if it's closable.
func (a *Aggregator) Close() error {
	if closer, ok := a.Downstream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
