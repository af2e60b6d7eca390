// Package sim runs an aggregator and a chain of nodes in one process,
// connected by in-memory links. Each member runs in its own loop, the
// way separate devices would.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/robotalks/chainlink/pkg/chain/ap"
	"github.com/robotalks/chainlink/pkg/chain/link"
	"github.com/robotalks/chainlink/pkg/chain/node"
	fx "github.com/robotalks/chainlink/pkg/framework"
	"github.com/robotalks/chainlink/pkg/telemetry"
)

// Config defines a simulated chain.
type Config struct {
	ID          string
	Nodes       int
	Interval    time.Duration
	ReadTimeout time.Duration
}

// Chain is a simulated chain.
type Chain struct {
	AP    *ap.Aggregator
	Nodes []*node.Node
	// Sinks receives reports terminated by the aggregator.
	Sinks telemetry.SinkMux

	conf Config
	// tail is the unconnected end after the last node.
	tail *link.Channel
}

// New builds the chain, nothing runs until Run.
func (c Config) New() (*Chain, error) {
	if c.Nodes <= 0 {
		return nil, fmt.Errorf("invalid number of nodes %d", c.Nodes)
	}
	if c.ID == "" {
		c.ID = "sim"
	}
	if c.Interval <= 0 {
		c.Interval = fx.DefaultInterval
	}
	ch := &Chain{conf: c}
	apDown, up := link.NewPair("ap.downstream", "n1.upstream", c.ReadTimeout)
	ch.AP = ap.New(c.ID, apDown)
	for i := 1; i <= c.Nodes; i++ {
		down, next := link.NewPair(
			fmt.Sprintf("n%d.downstream", i),
			fmt.Sprintf("n%d.upstream", i+1),
			c.ReadTimeout)
		ch.Nodes = append(ch.Nodes, node.New(up, down))
		up = next
	}
	ch.tail = up
	return ch, nil
}

// Provisioned tells whether every node has reported to the aggregator.
func (ch *Chain) Provisioned() bool {
	return ch.AP.Table.Len() == len(ch.Nodes)
}

// Run runs the aggregator and nodes until ctx is done or a link is lost.
func (ch *Chain) Run(ctx context.Context) error {
	defer ch.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apLoop := fx.NewLoop().Add(ch.AP, &telemetry.Flusher{Sink: &ch.Sinks})
	loops := []fx.Runnable{fx.NamedRun("ap", ch.stopOnExit(apLoop, cancel))}
	for n, nd := range ch.Nodes {
		loop := fx.NewLoop().Add(nd)
		loops = append(loops, fx.NamedRun(fmt.Sprintf("node%d", n+1), ch.stopOnExit(loop, cancel)))
	}
	return fx.NewRunnerWith(ctx).Go(loops...).Wait()
}

// loopRun stops the whole chain when one loop ends.
type loopRun struct {
	loop   *fx.Loop
	cancel func()
}

func (r *loopRun) Run(ctx context.Context) error {
	defer r.cancel()
	return r.loop.Run(ctx)
}

func (ch *Chain) stopOnExit(loop *fx.Loop, cancel func()) fx.Runnable {
	loop.Interval = ch.conf.Interval
	return &loopRun{loop: loop, cancel: cancel}
}

// Close closes all links.
func (ch *Chain) Close() error {
	var errs *multierror.Error
	if err := ch.AP.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, nd := range ch.Nodes {
		if err := nd.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := ch.tail.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
