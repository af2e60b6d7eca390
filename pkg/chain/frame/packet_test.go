package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketEncode(t *testing.T) {
	testCases := []struct {
		name   string
		packet *Packet
		expect []byte
	}{
		{
			"set addr",
			New(SetAddr, APAddr, Addr{X: 1, Y: 0}, 0),
			[]byte{0xef, 0xbe, 0, 0xff, 0xff, 1, 0, 0, 0, 0, 0},
		},
		{
			"report",
			New(Report, Addr{X: 2, Y: 0}, APAddr, 0x01020304),
			[]byte{0xef, 0xbe, 2, 2, 0, 0xff, 0xff, 4, 3, 2, 1},
		},
		{
			"unknown command",
			New(Command(0x7f), Addr{}, Addr{}, 0xffffffff),
			[]byte{0xef, 0xbe, 0x7f, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.packet.Encode())
			require.Equal(t, tc.expect, Encode(tc.packet))
			var buf bytes.Buffer
			n, err := tc.packet.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, int64(Size), n)
			require.Equal(t, tc.expect, buf.Bytes())
		})
	}
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "SET_ADDR", SetAddr.String())
	require.Equal(t, "REPORT_ACK", ReportAck.String())
	require.Equal(t, "BYPASS", Bypass.String())
	require.Equal(t, "Command(9)", Command(9).String())
}
