package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"
	"github.com/pterm/pterm"

	"github.com/robotalks/chainlink/pkg/chain/sim"
	"github.com/robotalks/chainlink/pkg/cli/sh"
	fx "github.com/robotalks/chainlink/pkg/framework"
	"github.com/robotalks/chainlink/pkg/telemetry"
	"github.com/robotalks/chainlink/pkg/telemetry/mqtt"
)

var (
	conf = sim.Config{
		ID:          "sim",
		Nodes:       5,
		Interval:    fx.DefaultInterval,
		ReadTimeout: 20 * time.Millisecond,
	}
	printInterval = time.Second
	mqttURL       string
)

func init() {
	flag.StringVar(&conf.ID, "id", conf.ID, "Aggregator ID.")
	flag.IntVar(&conf.Nodes, "nodes", conf.Nodes, "Number of nodes in the chain.")
	flag.DurationVar(&conf.Interval, "interval", conf.Interval, "Sleep between two protocol iterations.")
	flag.DurationVar(&conf.ReadTimeout, "read-timeout", conf.ReadTimeout, "Timeout of each link read.")
	flag.DurationVar(&printInterval, "print", printInterval, "Interval of printing the node table.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "Publish telemetry to the MQTT broker if set.")
}

type printer struct {
	chain *sim.Chain
}

func (p *printer) Run(ctx context.Context) error {
	ticker := time.NewTicker(printInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			recs := p.chain.AP.Table.Records()
			pterm.Info.Printfln("%s: %d/%d nodes reported, ap %s",
				now.Format(time.TimeOnly), len(recs), len(p.chain.Nodes), p.chain.AP.State())
			if len(recs) == 0 {
				continue
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(sh.NodesTable(recs, now)).Render(); err != nil {
				return err
			}
		}
	}
}

func main() {
	flag.Parse()

	chain, err := conf.New()
	if err != nil {
		glog.Exit(err)
	}
	if mqttURL != "" {
		pub, err := mqtt.NewPublisher(mqttURL, telemetry.APInfo{
			ID:          conf.ID,
			FirstAddr:   "1,0",
			Description: "simulated chain",
		})
		if err != nil {
			glog.Exit(err)
		}
		// connected and cleared by the aggregator loop.
		chain.Sinks.Add(pub)
	}
	pterm.DefaultHeader.Println("chain simulation")
	fx.RunOrFail(fx.NamedRun("chain", chain), fx.NamedRun("printer", &printer{chain: chain}))
}
