package node

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/chainlink/pkg/chain/frame"
	"github.com/robotalks/chainlink/pkg/chain/link"
	"github.com/robotalks/chainlink/pkg/env"
	fx "github.com/robotalks/chainlink/pkg/framework"
)

// Config defines the configuration of a node daemon.
type Config struct {
	// Upstream and Downstream are link URLs, see link.Open.
	Upstream   string
	Downstream string
	// Interval is the sleep between two iterations.
	Interval time.Duration
	// ReadTimeout bounds each link read.
	ReadTimeout time.Duration
	// ReadSize is the number of bytes requested per link read.
	ReadSize int
}

var defaultConfig = Config{
	Interval:    fx.DefaultInterval,
	ReadTimeout: link.DefaultTimeout,
	ReadSize:    frame.Size,
}

func init() {
	if val := os.Getenv("CHAIN_UPSTREAM"); val != "" {
		defaultConfig.Upstream = val
	}
	if val := os.Getenv("CHAIN_DOWNSTREAM"); val != "" {
		defaultConfig.Downstream = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Upstream, "upstream", defaultConfig.Upstream, "Upstream link URL (toward the AP).")
	flag.StringVar(&defaultConfig.Downstream, "downstream", defaultConfig.Downstream, "Downstream link URL (toward the next node).")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Sleep between two protocol iterations.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Timeout of each link read.")
	flag.IntVar(&defaultConfig.ReadSize, "read-size", defaultConfig.ReadSize, "Bytes requested per link read.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

type fileConfig struct {
	Upstream    string `toml:"upstream"`
	Downstream  string `toml:"downstream"`
	Interval    string `toml:"interval"`
	ReadTimeout string `toml:"read_timeout"`
	ReadSize    int    `toml:"read_size"`
}

// LoadFile overrides the config with keys set in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	f, err := env.LoadFile(path, &raw)
	if err != nil {
		return err
	}
	f.String("upstream", raw.Upstream, &c.Upstream)
	f.String("downstream", raw.Downstream, &c.Downstream)
	f.Int("read_size", raw.ReadSize, &c.ReadSize)
	if err := f.Duration("interval", raw.Interval, &c.Interval); err != nil {
		return err
	}
	return f.Duration("read_timeout", raw.ReadTimeout, &c.ReadTimeout)
}

// Open opens both links and creates the node.
func (c *Config) Open(ctx context.Context) (*Node, error) {
	up, err := link.Open(ctx, "upstream", c.Upstream, c.ReadTimeout)
	if err != nil {
		return nil, err
	}
	down, err := link.Open(ctx, "downstream", c.Downstream, c.ReadTimeout)
	if err != nil {
		up.Close()
		return nil, err
	}
	n := New(up, down)
	n.ReadSize = c.ReadSize
	return n, nil
}

// Runnable returns a Runnable running the node for its lifetime.
func (c *Config) Runnable() fx.Runnable {
	return fx.NamedRun("node", &runner{conf: c})
}

type runner struct {
	conf *Config
}

// Run implements Runnable. An unavailable link is reported once and
// ends the task.
func (r *runner) Run(ctx context.Context) error {
	n, err := r.conf.Open(ctx)
	if err != nil {
		glog.Errorf("node not started: %v", err)
		return err
	}
	defer n.Close()
	loop := fx.NewLoop()
	loop.Interval = r.conf.Interval
	err = loop.Add(n).Run(ctx)
	if fx.IsFatal(err) {
		glog.Errorf("node stopped at %s (%s): %v", n.State(), n.Local(), err)
	}
	return err
}
