package telemetry

import (
	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"

	fx "github.com/robotalks/chainlink/pkg/framework"
)

// Sink receives reports.
type Sink interface {
	SendReport(Report) error
}

// SinkFunc is func form of Sink.
type SinkFunc func(Report) error

// SendReport implements Sink.
func (f SinkFunc) SendReport(r Report) error {
	return f(r)
}

// SinkMux sends reports to multiple Sinks.
type SinkMux struct {
	Sinks []Sink
}

// Add adds more sinks.
func (m *SinkMux) Add(sinks ...Sink) {
	m.Sinks = append(m.Sinks, sinks...)
}

// SendReport implements Sink. Every sink is tried, errors are aggregated.
func (m *SinkMux) SendReport(r Report) error {
	var errs *multierror.Error
	for _, sink := range m.Sinks {
		if err := sink.SendReport(r); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// AddToLoop implements LoopAdder, adding the sinks which are
// LoopAdders themselves.
func (m *SinkMux) AddToLoop(l *fx.Loop) {
	for _, sink := range m.Sinks {
		if adder, ok := sink.(fx.LoopAdder); ok {
			l.Add(adder)
		}
	}
}

// ReportMsg wraps a Report as a loop Message.
type ReportMsg struct {
	Report Report
}

// NewMessage implements Message.
func (m *ReportMsg) NewMessage() fx.Message { return &ReportMsg{} }

// Flusher delivers ReportMsgs posted during an iteration to Sink.
// It runs at post-processing priority, after the protocol controllers.
type Flusher struct {
	Sink Sink
}

// Control implements Controller.
func (f *Flusher) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		msg, ok := mctx.CurrentMessage().(*ReportMsg)
		if !ok {
			return
		}
		mctx.MessageTaken()
		if err := f.Sink.SendReport(msg.Report); err != nil {
			glog.Warningf("report %s: %v", msg.Report.Node, err)
		}
	}))
	return nil
}

// AddToLoop implements LoopAdder.
func (f *Flusher) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvPostProc, f)
	if adder, ok := f.Sink.(fx.LoopAdder); ok {
		l.Add(adder)
	}
}
