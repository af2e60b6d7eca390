package ap

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
	"github.com/robotalks/chainlink/pkg/telemetry"
	"github.com/robotalks/chainlink/pkg/telemetry/mqtt"
)

// Config defines the configuration of an aggregator daemon.
type Config struct {
	// ID identifies the aggregator in telemetry, machine ID by default.
	ID          string
	Description string
	Downstream  string
	FirstAddr   string
	Interval    time.Duration
	ReadTimeout time.Duration
	ReadSize    int
	// MQTT is the broker URL, telemetry is not published if empty.
	MQTT string
}

var defaultConfig = Config{
	FirstAddr:   "1,0",
	Interval:    fx.DefaultInterval,
	ReadTimeout: link.DefaultTimeout,
	ReadSize:    frame.Size,
}

func init() {
	if val := os.Getenv("CHAIN_AP_ID"); val != "" {
		defaultConfig.ID = val
	}
	if val := os.Getenv("CHAIN_DOWNSTREAM"); val != "" {
		defaultConfig.Downstream = val
	}
	if val := os.Getenv("CHAIN_MQTT_URL"); val != "" {
		defaultConfig.MQTT = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Aggregator ID, machine ID if empty.")
	flag.StringVar(&defaultConfig.Description, "desc", defaultConfig.Description, "Aggregator description.")
	flag.StringVar(&defaultConfig.Downstream, "downstream", defaultConfig.Downstream, "Downstream link URL (toward the first node).")
	flag.StringVar(&defaultConfig.FirstAddr, "first-addr", defaultConfig.FirstAddr, "Address assigned to the first node, x,y.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Sleep between two protocol iterations.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Timeout of each link read.")
	flag.IntVar(&defaultConfig.ReadSize, "read-size", defaultConfig.ReadSize, "Bytes requested per link read.")
	flag.StringVar(&defaultConfig.MQTT, "mqtt", defaultConfig.MQTT, "MQTT broker URL for telemetry, e.g. "+mqtt.DefaultBrokerURL)
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
	ID          string `toml:"id"`
	Description string `toml:"description"`
	Downstream  string `toml:"downstream"`
	FirstAddr   string `toml:"first_addr"`
	Interval    string `toml:"interval"`
	ReadTimeout string `toml:"read_timeout"`
	ReadSize    int    `toml:"read_size"`
	MQTT        string `toml:"mqtt"`
}

// LoadFile overrides the config with keys set in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	f, err := env.LoadFile(path, &raw)
	if err != nil {
		return err
	}
	f.String("id", raw.ID, &c.ID)
	f.String("description", raw.Description, &c.Description)
	f.String("downstream", raw.Downstream, &c.Downstream)
	f.String("first_addr", raw.FirstAddr, &c.FirstAddr)
	f.String("mqtt", raw.MQTT, &c.MQTT)
	f.Int("read_size", raw.ReadSize, &c.ReadSize)
	if err := f.Duration("interval", raw.Interval, &c.Interval); err != nil {
		return err
	}
	return f.Duration("read_timeout", raw.ReadTimeout, &c.ReadTimeout)
}

// APID returns the configured ID or a short machine ID.
func (c *Config) APID() string {
	if c.ID != "" {
		return c.ID
	}
	return env.ShortMachineID(12, "ap")
}

// Info builds the published APInfo.
func (c *Config) Info() telemetry.APInfo {
	return telemetry.APInfo{
		ID:          c.APID(),
		FirstAddr:   c.FirstAddr,
		Downstream:  c.Downstream,
		Description: c.Description,
	}
}

// Open opens the downstream link and creates the aggregator.
func (c *Config) Open(ctx context.Context) (*Aggregator, error) {
	first, err := frame.ParseAddr(c.FirstAddr)
	if err != nil {
		return nil, err
	}
	down, err := link.Open(ctx, "downstream", c.Downstream, c.ReadTimeout)
	if err != nil {
		return nil, err
	}
	a := New(c.APID(), down)
	a.FirstAddr = first
	a.ReadSize = c.ReadSize
	return a, nil
}

// Sinks creates the telemetry sinks from the config: the MQTT
// publisher when a broker is configured.
func (c *Config) Sinks() ([]telemetry.Sink, error) {
	if c.MQTT == "" {
		return nil, nil
	}
	pub, err := mqtt.NewPublisher(c.MQTT, c.Info())
	if err != nil {
		return nil, err
	}
	return []telemetry.Sink{pub}, nil
}

// Runnable returns a Runnable running the aggregator. Extra sinks
// receive every report along with the configured ones.
func (c *Config) Runnable(sinks ...telemetry.Sink) fx.Runnable {
	return fx.NamedRun("ap", &runner{conf: c, sinks: sinks})
}

type runner struct {
	conf  *Config
	sinks []telemetry.Sink
}

// Run implements Runnable.
func (r *runner) Run(ctx context.Context) error {
	sinks, err := r.conf.Sinks()
	if err != nil {
		glog.Errorf("ap not started: %v", err)
		return err
	}
	a, err := r.conf.Open(ctx)
	if err != nil {
		glog.Errorf("ap not started: %v", err)
		return err
	}
	defer a.Close()

	mux := &telemetry.SinkMux{}
	mux.Add(sinks...)
	mux.Add(r.sinks...)
	loop := fx.NewLoop()
	loop.Interval = r.conf.Interval
	err = loop.Add(a, &telemetry.Flusher{Sink: mux}).Run(ctx)
	if fx.IsFatal(err) {
		glog.Errorf("ap stopped: %v", err)
	}
	return err
}
