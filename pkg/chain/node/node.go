package node

import (
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"

	"github.com/robotalks/chainlink/pkg/chain/frame"
	fx "github.com/robotalks/chainlink/pkg/framework"
)

// Channel is a link as seen by the node: reads return a short count
// when the link timeout expires.
type Channel interface {
	io.Reader
	io.Writer
}

// StateNotifier is called when the node state changes.
type StateNotifier interface {
	StateChanged(from, to State, c Context)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(from, to State, c Context)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(from, to State, c Context) {
	f(from, to, c)
}

// Node runs the protocol over its two links. It's driven by a single
// task, one Poll per loop iteration, and is not safe for concurrent use.
type Node struct {
	Upstream   Channel
	Downstream Channel
	Notifier   StateNotifier
	// ReadSize is the number of bytes requested per link read.
	ReadSize int

	state State
	ctx   Context
	start time.Time
	buf   []byte
}

// New creates an unassigned node.
func New(upstream, downstream Channel) *Node {
	return &Node{
		Upstream:   upstream,
		Downstream: downstream,
		ReadSize:   frame.Size,
		state:      WaitSetAddr,
		ctx:        NewContext(),
	}
}

// State gets the current state.
func (n *Node) State() State {
	return n.state
}

// Local gets the adopted address, UnassignedAddr if none yet.
func (n *Node) Local() frame.Addr {
	return n.ctx.Local
}

// AddToLoop implements LoopAdder.
func (n *Node) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvControl, n)
}

// Control implements Controller. The tick stamped on packets is the
// number of milliseconds since the first iteration.
func (n *Node) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if n.start.IsZero() {
		n.start = now
	}
	return n.Poll(uint32(now.Sub(n.start) / time.Millisecond))
}

// Poll runs one iteration of the state machine. In WAIT_PACKET the
// downstream link is read before the upstream link, once each.
// A failed link read is returned as a fatal error.
func (n *Node) Poll(now uint32) error {
	switch n.state.Source() {
	case SourceUpstream:
		return n.pollLink(Upstream, now)
	case SourceDownstream:
		return n.pollLink(Downstream, now)
	case SourceBoth:
		if err := n.pollLink(Downstream, now); err != nil {
			return err
		}
		return n.pollLink(Upstream, now)
	}
	n.apply(Step(n.state, n.ctx, Input{Now: now}))
	return nil
}

func (n *Node) pollLink(from Link, now uint32) error {
	in, err := n.receive(from, now)
	if err != nil {
		return fx.Fatal(err)
	}
	n.apply(Step(n.state, n.ctx, in))
	return nil
}

func (n *Node) receive(from Link, now uint32) (Input, error) {
	size := n.ReadSize
	if size < frame.Size {
		size = frame.Size
	}
	if cap(n.buf) < size {
		n.buf = make([]byte, size)
	}
	buf := n.buf[:size]
	cnt, err := n.channel(from).Read(buf)
	if err != nil {
		glog.Errorf("%s link lost: %v", from, err)
		return Input{}, err
	}
	in := Input{From: from, Now: now}
	if r := frame.Decode(buf[:cnt]); r.IsMatch() {
		in.Packet = r.Packet
		glog.V(2).Infof("RCV %s %s", from, r.Packet)
	} else if glog.V(4) {
		glog.Infof("%s: no frame in %d bytes", from, cnt)
	}
	return in, nil
}

func (n *Node) apply(t Transition) {
	if t.Out != nil {
		glog.V(2).Infof("SND %s %s", t.Target, t.Out)
		if _, err := t.Out.WriteTo(n.channel(t.Target)); err != nil {
			// not retried here, the state machine resends on timeout.
			glog.Warningf("send %s on %s: %v", t.Out.Command, t.Target, err)
		}
	}
	if t.Context.Local != n.ctx.Local {
		glog.Infof("address adopted: %s", t.Context.Local)
	}
	from := n.state
	n.state, n.ctx = t.Next, t.Context
	if from != t.Next {
		glog.V(1).Infof("state %s -> %s", from, t.Next)
		if h := n.Notifier; h != nil {
			h.StateChanged(from, t.Next, t.Context)
		}
	}
}

func (n *Node) channel(l Link) Channel {
	if l == Downstream {
		return n.Downstream
	}
	return n.Upstream
}

// Close closes both links if they are closable.
func (n *Node) Close() error {
	var errs *multierror.Error
	for _, ch := range []Channel{n.Upstream, n.Downstream} {
		if closer, ok := ch.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}
