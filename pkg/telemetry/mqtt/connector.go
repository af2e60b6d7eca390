package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/chainlink/pkg/telemetry"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Connector is used by operator tools to find aggregators and follow
// their reports.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL string
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, brokerURL: brokerURL}, nil
}

func (c *Connector) connect() (*Queue, error) {
	q, err := NewQueueFromURL(c.brokerURL)
	if err != nil {
		return nil, err
	}
	if err := q.ConnectWait(); err != nil {
		return nil, err
	}
	return q, nil
}

// Discover collects the retained meta of live aggregators until the
// discover timeout expires.
func (c *Connector) Discover(ctx context.Context) (res []telemetry.APInfo, err error) {
	q, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer q.Close()

	infoCh := make(chan telemetry.APInfo, 16)
	sub := q.Sub(MetaFilter, func(topic string, payload []byte) {
		ap, ok := ParseMetaTopic(topic)
		if !ok || len(payload) == 0 {
			return
		}
		var info telemetry.APInfo
		if err := json.Unmarshal(payload, &info); err != nil {
			glog.Warningf("%s: bad meta: %v", topic, err)
			return
		}
		if info.ID == "" {
			info.ID = ap
		}
		select {
		case infoCh <- info:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	dur := c.DiscoverTimeout
	if dur <= 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-infoCh:
			res = append(res, info)
		case <-timeout:
			return res, nil
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

// Watcher delivers the reports of one aggregator to a Sink until closed.
type Watcher struct {
	AP string

	queue *Queue
	sub   *Subscription
}

// Watch subscribes to the reports of aggregator ap. Undecodable reports
// are logged and dropped.
func (c *Connector) Watch(ap string, sink telemetry.Sink) (*Watcher, error) {
	q, err := c.connect()
	if err != nil {
		return nil, err
	}
	w := &Watcher{AP: ap, queue: q}
	w.sub = q.Sub(ReportFilter(ap), func(topic string, payload []byte) {
		r, err := telemetry.DecodeReport(payload)
		if err != nil {
			glog.Warningf("%s: %v", topic, err)
			return
		}
		if err := sink.SendReport(r); err != nil {
			glog.Warningf("%s: %v", topic, err)
		}
	})
	w.sub.Token.Wait()
	if err := w.sub.Token.Error(); err != nil {
		q.Close()
		return nil, err
	}
	return w, nil
}

// Close implements io.Closer.
func (w *Watcher) Close() error {
	err := w.sub.Close()
	w.queue.Close()
	return err
}
