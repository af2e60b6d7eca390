package sh

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/chainlink/pkg/chain/frame"
	"github.com/robotalks/chainlink/pkg/telemetry"
)

type fakeConnector struct {
	infoList []telemetry.APInfo
}

func (c *fakeConnector) Discover(context.Context) ([]telemetry.APInfo, error) {
	return c.infoList, nil
}

func (c *fakeConnector) Watch(string, telemetry.Sink) (io.Closer, error) {
	return io.NopCloser(nil), nil
}

func TestFormatInfo(t *testing.T) {
	require.Equal(t, "ap0", FormatInfo(telemetry.APInfo{ID: "ap0"}))
	require.Equal(t, "ap0 first=(1,0): lab", FormatInfo(telemetry.APInfo{ID: "ap0", FirstAddr: "1,0", Description: "lab"}))
}

func TestNodesTable(t *testing.T) {
	now := time.Now()
	data := NodesTable([]telemetry.NodeRecord{
		{Node: frame.Addr{X: 1}, Count: 3, LastTick: 100, LastSeen: now.Add(-1500 * time.Millisecond)},
	}, now)
	require.Len(t, data, 2)
	require.Equal(t, []string{"NODE", "REPORTS", "TICK", "AGE"}, data[0])
	require.Equal(t, []string{"(1,0)", "3", "100", "1.5s"}, data[1])
}

func TestSelectAP(t *testing.T) {
	conn := &fakeConnector{}
	s := &Shell{Connector: conn}
	_, err := s.SelectAP()
	require.Error(t, err)

	conn.infoList = []telemetry.APInfo{{ID: "ap0"}}
	ap, err := s.SelectAP()
	require.NoError(t, err)
	require.Equal(t, "ap0", ap)

	conn.infoList = append(conn.infoList, telemetry.APInfo{ID: "ap1"})
	_, err = s.SelectAP()
	require.Error(t, err)
}
