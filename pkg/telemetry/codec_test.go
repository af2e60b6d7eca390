package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/chainlink/pkg/chain/frame"
)

func testReport() Report {
	return Report{
		AP:       "ap0",
		Node:     frame.Addr{X: 3, Y: 0},
		Tick:     4321,
		Received: time.Date(2024, 5, 1, 10, 20, 30, 400, time.UTC),
	}
}

func TestEncodeDecodeReport(t *testing.T) {
	data, err := EncodeReport(testReport())
	require.NoError(t, err)
	r, err := DecodeReport(data)
	require.NoError(t, err)
	require.Equal(t, testReport().AP, r.AP)
	require.Equal(t, testReport().Node, r.Node)
	require.Equal(t, testReport().Tick, r.Tick)
	require.True(t, testReport().Received.Equal(r.Received))
}

func TestReportJSON(t *testing.T) {
	s, err := ReportJSON(testReport())
	require.NoError(t, err)
	require.Contains(t, s, `"ap":"ap0"`)
	require.Contains(t, s, `"x":3`)
	require.Contains(t, s, `"tick":4321`)
}

func TestDecodeReportMalformed(t *testing.T) {
	_, err := DecodeReport([]byte{0xff, 0xff, 0xff})
	require.True(t, errors.Is(err, ErrMalformed))

	testCases := []struct {
		name   string
		mutate func(*structpb.Struct)
	}{
		{"missing ap", func(s *structpb.Struct) { delete(s.Fields, "ap") }},
		{"x not number", func(s *structpb.Struct) { s.Fields["x"] = stringValue("1") }},
		{"y out of range", func(s *structpb.Struct) { s.Fields["y"] = numberValue(256) }},
		{"tick negative", func(s *structpb.Struct) { s.Fields["tick"] = numberValue(-1) }},
		{"tick fraction", func(s *structpb.Struct) { s.Fields["tick"] = numberValue(1.5) }},
		{"bad received", func(s *structpb.Struct) { s.Fields["received"] = stringValue("yesterday") }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := testReport().Struct()
			tc.mutate(s)
			data, err := proto.Marshal(s)
			require.NoError(t, err)
			_, err = DecodeReport(data)
			require.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}
