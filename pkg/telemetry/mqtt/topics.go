package mqtt

import (
	"strconv"
	"strings"

	"github.com/robotalks/chainlink/pkg/chain/frame"
)

// Topic names relative to the topic prefix.
const (
	metaSuffix     = "/meta"
	reportSegment  = "/report/"
	MetaFilter     = "+" + metaSuffix
	allNodesFilter = "+"
)

// MetaTopic is the retained meta topic of an aggregator.
func MetaTopic(ap string) string {
	return ap + metaSuffix
}

// ReportTopic is the topic reports of a node are published to.
func ReportTopic(ap string, node frame.Addr) string {
	return ap + reportSegment + node.Key()
}

// ReportFilter matches reports of all nodes of an aggregator.
func ReportFilter(ap string) string {
	return ap + reportSegment + allNodesFilter
}

// ParseMetaTopic extracts the aggregator ID from a meta topic.
func ParseMetaTopic(topic string) (string, bool) {
	ap := strings.TrimSuffix(topic, metaSuffix)
	if ap == topic || ap == "" || strings.Contains(ap, "/") {
		return "", false
	}
	return ap, true
}

// ParseReportTopic extracts the aggregator ID and node address from a
// report topic.
func ParseReportTopic(topic string) (ap string, node frame.Addr, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "report" {
		return
	}
	xy := strings.Split(parts[2], "-")
	if len(xy) != 2 {
		return
	}
	x, err := strconv.ParseUint(xy[0], 10, 8)
	if err != nil {
		return
	}
	y, err := strconv.ParseUint(xy[1], 10, 8)
	if err != nil {
		return
	}
	return parts[0], frame.Addr{X: byte(x), Y: byte(y)}, true
}
