package node

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/chainlink/pkg/chain/frame"
	"github.com/robotalks/chainlink/pkg/chain/link"
	fx "github.com/robotalks/chainlink/pkg/framework"
)

const testTimeout = 10 * time.Millisecond

type testRig struct {
	node *Node
	// ap is the peer of the node's upstream link, next of its downstream.
	ap   *link.Channel
	next *link.Channel
}

func newTestRig() *testRig {
	ap, up := link.NewPair("ap", "upstream", testTimeout)
	down, next := link.NewPair("downstream", "next", testTimeout)
	return &testRig{node: New(up, down), ap: ap, next: next}
}

func (r *testRig) send(t *testing.T, ch *link.Channel, pkt *frame.Packet) {
	_, err := pkt.WriteTo(ch)
	require.NoError(t, err)
}

func (r *testRig) recv(t *testing.T, ch *link.Channel) *frame.Packet {
	buf := make([]byte, frame.Size)
	n, err := ch.Read(buf)
	require.NoError(t, err)
	res := frame.Decode(buf[:n])
	require.True(t, res.IsMatch(), "no frame on %s", ch.Name)
	return res.Packet
}

func (r *testRig) silent(t *testing.T, ch *link.Channel) {
	buf := make([]byte, frame.Size)
	n, err := ch.Read(buf)
	require.NoError(t, err)
	require.Zero(t, n, "unexpected bytes on %s", ch.Name)
}

func (r *testRig) poll(t *testing.T, now uint32, expected State) {
	require.NoError(t, r.node.Poll(now))
	require.Equal(t, expected, r.node.State())
}

// provision walks the node to WAIT_PACKET at (1,0).
func (r *testRig) provision(t *testing.T) {
	a10 := frame.Addr{X: 1, Y: 0}
	r.send(t, r.ap, frame.New(frame.SetAddr, frame.APAddr, a10, 0))
	r.poll(t, 1, SendAck)
	r.poll(t, 2, SendReport)
	r.poll(t, 3, WaitReportAck)
	r.send(t, r.ap, frame.New(frame.ReportAck, frame.APAddr, a10, 3))
	r.poll(t, 4, SetNextAddr)
	r.poll(t, 5, WaitNextAddrAck)
	r.send(t, r.next, frame.New(frame.Ack, frame.APAddr, a10, 0))
	r.poll(t, 6, WaitPacket)
}

func TestNodeAddressAssignment(t *testing.T) {
	r := newTestRig()
	a10 := frame.Addr{X: 1, Y: 0}
	require.Equal(t, frame.UnassignedAddr, r.node.Local())

	r.poll(t, 0, WaitSetAddr)
	r.send(t, r.ap, frame.New(frame.SetAddr, frame.APAddr, a10, 0))
	r.poll(t, 1, SendAck)
	require.Equal(t, a10, r.node.Local())

	r.poll(t, 2, SendReport)
	require.Equal(t, frame.New(frame.Ack, frame.APAddr, a10, 2), r.recv(t, r.ap))
	r.poll(t, 3, WaitReportAck)
	require.Equal(t, frame.New(frame.Report, a10, frame.APAddr, 3), r.recv(t, r.ap))

	// no REPORT_ACK, report again
	r.poll(t, 4, SendReport)
	r.poll(t, 5, WaitReportAck)
	require.Equal(t, frame.New(frame.Report, a10, frame.APAddr, 5), r.recv(t, r.ap))

	r.send(t, r.ap, frame.New(frame.ReportAck, frame.APAddr, a10, 5))
	r.poll(t, 6, SetNextAddr)
	r.poll(t, 7, WaitNextAddrAck)
	require.Equal(t, frame.New(frame.SetAddr, a10, frame.Addr{X: 2, Y: 0}, 7), r.recv(t, r.next))

	// nobody downstream
	r.poll(t, 8, SetNextAddr)
	r.poll(t, 9, WaitNextAddrAck)
	require.Equal(t, frame.New(frame.SetAddr, a10, frame.Addr{X: 2, Y: 0}, 9), r.recv(t, r.next))

	r.send(t, r.next, frame.New(frame.Ack, frame.APAddr, a10, 0))
	r.poll(t, 10, WaitPacket)
	r.silent(t, r.ap)
}

func TestNodeScenarioA(t *testing.T) {
	r := newTestRig()
	a10 := frame.Addr{X: 1, Y: 0}
	r.send(t, r.ap, &frame.Packet{Header: 0xbeef, Command: frame.SetAddr,
		Src: frame.Addr{X: 0xff, Y: 0xff}, Dst: a10, Data: 0})
	r.poll(t, 1, SendAck)
	r.poll(t, 2, SendReport)
	r.poll(t, 3, WaitReportAck)
	require.Equal(t, a10, r.node.Local())

	ack := r.recv(t, r.ap)
	require.Equal(t, frame.Ack, ack.Command)
	require.Equal(t, frame.Addr{X: 0xff, Y: 0xff}, ack.Src)
	require.Equal(t, a10, ack.Dst)
	report := r.recv(t, r.ap)
	require.Equal(t, frame.Report, report.Command)
	require.Equal(t, a10, report.Src)
	require.Equal(t, frame.Addr{X: 0xff, Y: 0xff}, report.Dst)
}

func TestNodeRelay(t *testing.T) {
	r := newTestRig()
	r.provision(t)
	r.recv(t, r.ap)
	r.recv(t, r.ap)
	r.recv(t, r.next)

	a30 := frame.Addr{X: 3, Y: 0}
	r.send(t, r.next, frame.New(frame.Report, a30, frame.APAddr, 1000))
	r.poll(t, 20, WaitPacket)
	require.Equal(t, frame.New(frame.Report, a30, frame.APAddr, 20), r.recv(t, r.ap))

	r.send(t, r.ap, frame.New(frame.ReportAck, frame.APAddr, a30, 77))
	r.poll(t, 21, WaitPacket)
	require.Equal(t, frame.New(frame.ReportAck, frame.APAddr, frame.Addr{X: 3, Y: 0xff}, 77), r.recv(t, r.next))
}

func TestNodeRelayBothLinksInOneIteration(t *testing.T) {
	r := newTestRig()
	r.provision(t)
	r.recv(t, r.ap)
	r.recv(t, r.ap)
	r.recv(t, r.next)

	a30 := frame.Addr{X: 3, Y: 0}
	r.send(t, r.next, frame.New(frame.Report, a30, frame.APAddr, 0))
	r.send(t, r.ap, frame.New(frame.ReportAck, frame.APAddr, a30, 5))
	r.poll(t, 30, WaitPacket)
	require.Equal(t, frame.Report, r.recv(t, r.ap).Command)
	require.Equal(t, frame.ReportAck, r.recv(t, r.next).Command)
}

func TestNodeIgnoresGarbage(t *testing.T) {
	r := newTestRig()
	_, err := r.ap.Write([]byte{0xef, 0x00, 0x01, 0x02, 0x03})
	require.NoError(t, err)
	r.poll(t, 0, WaitSetAddr)
	require.Equal(t, frame.UnassignedAddr, r.node.Local())
}

func TestNodeLinkLostIsFatal(t *testing.T) {
	r := newTestRig()
	require.NoError(t, r.ap.Close())
	err := r.node.Poll(0)
	require.Error(t, err)
	require.True(t, fx.IsFatal(err))
	require.True(t, errors.Is(err, link.ErrUnavailable))
	require.NoError(t, r.node.Close())
}

func TestNodeNotifier(t *testing.T) {
	r := newTestRig()
	var changes []State
	r.node.Notifier = StateChangedFunc(func(from, to State, c Context) {
		changes = append(changes, to)
	})
	r.send(t, r.ap, frame.New(frame.SetAddr, frame.APAddr, frame.Addr{X: 1, Y: 0}, 0))
	r.poll(t, 0, SendAck)
	r.poll(t, 1, SendReport)
	require.Equal(t, []State{SendAck, SendReport}, changes)
}

func TestNodeInLoop(t *testing.T) {
	r := newTestRig()
	loop := fx.NewLoop().Add(r.node)
	r.send(t, r.ap, frame.New(frame.SetAddr, frame.APAddr, frame.Addr{X: 1, Y: 0}, 0))
	for i := 0; i < 3; i++ {
		require.NoError(t, loop.RunOnce(context.TODO()))
	}
	require.Equal(t, WaitReportAck, r.node.State())
	require.Equal(t, frame.Ack, r.recv(t, r.ap).Command)
	require.Equal(t, frame.Report, r.recv(t, r.ap).Command)

	require.NoError(t, r.ap.Close())
	require.True(t, fx.IsFatal(loop.RunOnce(context.TODO())))
}

func TestConfigLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.toml")
	content := "upstream = \"serial:///dev/ttyS1?baud=9600\"\ninterval = \"5ms\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	conf := NewConfig()
	conf.Downstream = "tcp://localhost:9000"
	require.NoError(t, conf.LoadFile(path))
	require.Equal(t, "serial:///dev/ttyS1?baud=9600", conf.Upstream)
	require.Equal(t, "tcp://localhost:9000", conf.Downstream)
	require.Equal(t, 5*time.Millisecond, conf.Interval)
	require.Equal(t, link.DefaultTimeout, conf.ReadTimeout)
	require.Equal(t, frame.Size, conf.ReadSize)
}

func TestConfigRunnableLinkUnavailable(t *testing.T) {
	conf := NewConfig()
	conf.Upstream = "bogus://nowhere"
	err := conf.Runnable().Run(context.TODO())
	require.Error(t, err)
	require.True(t, errors.Is(err, link.ErrUnavailable))
}
