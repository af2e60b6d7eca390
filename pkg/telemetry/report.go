package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/robotalks/chainlink/pkg/chain/frame"
)

// Report is a REPORT terminated by an aggregator.
type Report struct {
	// AP is the ID of the aggregator.
	AP string
	// Node is the address of the reporting node.
	Node frame.Addr
	// Tick is the data field of the REPORT as received.
	Tick uint32
	// Received is the local time of the aggregator.
	Received time.Time
}

// APInfo describes an aggregator.
type APInfo struct {
	ID          string            `json:"id"`
	FirstAddr   string            `json:"first_addr,omitempty"`
	Downstream  string            `json:"downstream,omitempty"`
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// NodeRecord summarizes the reports of one node.
type NodeRecord struct {
	Node     frame.Addr
	Count    int
	LastTick uint32
	LastSeen time.Time
}

// Table keeps the last report per node. It's safe for concurrent use.
type Table struct {
	lock    sync.RWMutex
	records map[frame.Addr]*NodeRecord
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{records: make(map[frame.Addr]*NodeRecord)}
}

// SendReport implements Sink.
func (t *Table) SendReport(r Report) error {
	t.Update(r)
	return nil
}

// Update records a report and returns the updated record.
func (t *Table) Update(r Report) NodeRecord {
	t.lock.Lock()
	defer t.lock.Unlock()
	rec := t.records[r.Node]
	if rec == nil {
		rec = &NodeRecord{Node: r.Node}
		t.records[r.Node] = rec
	}
	rec.Count++
	rec.LastTick = r.Tick
	rec.LastSeen = r.Received
	return *rec
}

// Get returns the record of a node.
func (t *Table) Get(addr frame.Addr) (NodeRecord, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if rec := t.records[addr]; rec != nil {
		return *rec, true
	}
	return NodeRecord{}, false
}

// Len returns the number of known nodes.
func (t *Table) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.records)
}

// Records returns all records ordered by address, X first.
func (t *Table) Records() []NodeRecord {
	t.lock.RLock()
	recs := make([]NodeRecord, 0, len(t.records))
	for _, rec := range t.records {
		recs = append(recs, *rec)
	}
	t.lock.RUnlock()
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].Node, recs[j].Node
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return recs
}

// Reset forgets all nodes.
func (t *Table) Reset() {
	t.lock.Lock()
	t.records = make(map[frame.Addr]*NodeRecord)
	t.lock.Unlock()
}
