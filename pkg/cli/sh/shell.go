// Package sh implements the interactive operator shell of chainctl.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"
	"github.com/pterm/pterm"

	"github.com/robotalks/chainlink/pkg/telemetry"
	"github.com/robotalks/chainlink/pkg/telemetry/mqtt"
)

// Connector is what the shell needs from the telemetry backend.
type Connector interface {
	Discover(context.Context) ([]telemetry.APInfo, error)
	Watch(ap string, sink telemetry.Sink) (io.Closer, error)
}

// MQTTConnector adapts mqtt.Connector to Connector.
type MQTTConnector struct {
	*mqtt.Connector
}

// Watch implements Connector.
func (c MQTTConnector) Watch(ap string, sink telemetry.Sink) (io.Closer, error) {
	return c.Connector.Watch(ap, sink)
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// AP is watched when the shell starts, if set.
	AP string

	Shell     *ishell.Shell
	Connector Connector
	Watch     *Watch
}

// Watch is the aggregator being watched.
type Watch struct {
	AP    string
	Table *telemetry.Table

	closer io.Closer
}

const (
	shellKey        = "$shell"
	unwatchedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	brokerURL  = mqtt.DefaultBrokerURL
	watchAP    string

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&WatchCmd,
		&NodesCmd,
		&UnwatchCmd,
	}
)

func init() {
	if val := os.Getenv("CHAIN_MQTT_URL"); val != "" {
		brokerURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&brokerURL, "mqtt", brokerURL, "MQTT broker URL.")
	flag.StringVar(&watchAP, "ap", watchAP, "Aggregator to watch on start.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(connector Connector) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		AP:          watchAP,
		Shell:       ishell.New(),
		Connector:   connector,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unwatchedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeWatching wraps command func requires a watched aggregator.
func MustBeWatching(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Watch == nil {
			c.Err(fmt.Errorf("not watching any aggregator"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints APInfo into friendly string for display.
func FormatInfo(info telemetry.APInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.ID)
	if info.FirstAddr != "" {
		fmt.Fprintf(&w, " first=(%s)", info.FirstAddr)
	}
	if info.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Description)
	}
	return w.String()
}

// NodesTable renders node records as table rows with a header. Age is
// relative to now.
func NodesTable(recs []telemetry.NodeRecord, now time.Time) pterm.TableData {
	data := pterm.TableData{{"NODE", "REPORTS", "TICK", "AGE"}}
	for _, rec := range recs {
		data = append(data, []string{
			rec.Node.String(),
			strconv.Itoa(rec.Count),
			strconv.FormatUint(uint64(rec.LastTick), 10),
			now.Sub(rec.LastSeen).Truncate(time.Millisecond).String(),
		})
	}
	return data
}

// SelectAP discovers aggregators and asks for a choice.
func (s *Shell) SelectAP() (string, error) {
	infoList, err := s.Connector.Discover(context.TODO())
	if err != nil {
		return "", err
	}
	switch {
	case len(infoList) == 0:
		return "", fmt.Errorf("no aggregator discovered")
	case len(infoList) == 1:
		return infoList[0].ID, nil
	case !s.Interactive:
		return "", fmt.Errorf("more than 1 aggregators discovered in non-interactive mode")
	}
	items := make([]string, len(infoList))
	for n, info := range infoList {
		items[n] = FormatInfo(info)
	}
	index := s.Shell.MultiChoice(items, "Which one to watch?")
	if index < 0 {
		return "", fmt.Errorf("nothing selected")
	}
	return infoList[index].ID, nil
}

// StartWatch starts watching reports of an aggregator, replacing the
// current watch.
func (s *Shell) StartWatch(ap string) error {
	tbl := telemetry.NewTable()
	w, err := s.Connector.Watch(ap, tbl)
	if err != nil {
		return err
	}
	s.StopWatch()
	s.Watch = &Watch{AP: ap, Table: tbl, closer: w}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", ap))
	return nil
}

// StopWatch stops the current watch.
func (s *Shell) StopWatch() {
	if s.Watch == nil {
		return
	}
	if err := s.Watch.closer.Close(); err != nil {
		glog.Warningf("unwatch %s: %v", s.Watch.AP, err)
	}
	s.Watch = nil
	s.Shell.SetPrompt(unwatchedPrompt)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) error {
	if s.AP != "" {
		if s.Interactive {
			s.Shell.Printf("Watching %s ...\n", s.AP)
		}
		if err := s.StartWatch(s.AP); err != nil {
			return fmt.Errorf("watch %s: %w", s.AP, err)
		}
	}
	defer s.StopWatch()

	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}

var (
	// DiscoverCmd discovers aggregators.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "list live aggregators",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.Connector.Discover(context.TODO())
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []telemetry.APInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No aggregators found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// WatchCmd starts following the reports of an aggregator.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[AP]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ap string
			if len(c.Args) > 0 {
				ap = c.Args[0]
			} else {
				var err error
				if ap, err = s.SelectAP(); err != nil {
					c.Err(err)
					return
				}
			}
			if err := s.StartWatch(ap); err != nil {
				c.Err(err)
			}
		},
	}

	// NodesCmd prints the last report of every node.
	NodesCmd = ishell.Cmd{
		Name:    "nodes",
		Aliases: []string{"n"},
		Help:    "show nodes of the watched aggregator",
		Func: MustBeWatching(func(c *ishell.Context) {
			s := ShellFrom(c)
			recs := s.Watch.Table.Records()
			if s.OutputJSON {
				out, err := json.Marshal(recs)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(recs) == 0 {
				c.Println("No reports yet")
				return
			}
			out, err := pterm.DefaultTable.WithHasHeader().WithData(NodesTable(recs, time.Now())).Srender()
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(out)
		}),
	}

	// UnwatchCmd stops watching.
	UnwatchCmd = ishell.Cmd{
		Name:    "unwatch",
		Aliases: []string{"u"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).StopWatch()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	connector, err := mqtt.NewConnector(brokerURL)
	if err != nil {
		glog.Exit(err)
	}
	if err := New(MQTTConnector{connector}).Run(flag.Args()...); err != nil {
		glog.Exit(err)
	}
}
