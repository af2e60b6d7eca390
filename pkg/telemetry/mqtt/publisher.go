package mqtt

import (
	"context"
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	fx "github.com/robotalks/chainlink/pkg/framework"
	"github.com/robotalks/chainlink/pkg/telemetry"
)

// DefaultPublishTimeout bounds waiting for a report to be handed to the
// broker.
const DefaultPublishTimeout = 200 * time.Millisecond

// Publisher publishes the meta and reports of one aggregator. It
// implements telemetry.Sink.
type Publisher struct {
	Queue          *Queue
	Info           telemetry.APInfo
	PublishTimeout time.Duration

	meta []byte
}

// NewPublisher creates a Publisher. The retained meta is cleared by the
// broker through the will if the aggregator disappears.
func NewPublisher(brokerURL string, info telemetry.APInfo) (*Publisher, error) {
	meta, err := json.Marshal(&info)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+MetaTopic(info.ID), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("chain:" + info.ID)
	}
	p := &Publisher{
		Queue:          NewQueue(opts, topicPrefix),
		Info:           info,
		PublishTimeout: DefaultPublishTimeout,
		meta:           meta,
	}
	p.Queue.OnConnect = func(*Queue) { p.publishMeta(p.meta) }
	return p, nil
}

// SendReport implements telemetry.Sink.
func (p *Publisher) SendReport(r telemetry.Report) error {
	data, err := telemetry.EncodeReport(r)
	if err != nil {
		return err
	}
	token := p.Queue.Pub(ReportTopic(p.Info.ID, r.Node), data)
	if !token.WaitTimeout(p.PublishTimeout) {
		return nil
	}
	return token.Error()
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(l *fx.Loop) {
	l.AddRunnable(p)
}

// Run implements Runnable. It connects in the background and clears
// the retained meta when ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	p.Queue.Connect()
	<-ctx.Done()
	if p.Queue.Client.IsConnected() {
		p.publishMeta(nil).WaitTimeout(p.PublishTimeout)
	}
	return p.Queue.Close()
}

func (p *Publisher) publishMeta(meta []byte) paho.Token {
	return p.Queue.PubWith(MetaTopic(p.Info.ID), meta, 1, true)
}
