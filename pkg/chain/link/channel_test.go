package link

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTimeout = 50 * time.Millisecond

func TestChannelReadFull(t *testing.T) {
	a, b := NewPair("a", "b", testTimeout)
	defer a.Close()

	go func() {
		b.Write([]byte{1, 2, 3})
		time.Sleep(5 * time.Millisecond)
		b.Write([]byte{4, 5})
	}()
	buf := make([]byte, 5)
	n, err := a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, buf)
}

func TestChannelReadTimeout(t *testing.T) {
	a, b := NewPair("a", "b", testTimeout)
	defer a.Close()

	buf := make([]byte, 4)
	start := time.Now()
	n, err := a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.True(t, time.Since(start) >= testTimeout)

	_, err = b.Write([]byte{9, 8})
	require.NoError(t, err)
	n, err = a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{9, 8}, buf[:n])
}

func TestChannelDirections(t *testing.T) {
	a, b := NewPair("a", "b", testTimeout)
	defer a.Close()

	a.Write([]byte{1})
	b.Write([]byte{2})
	buf := make([]byte, 1)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, byte(1), buf[0])
	n, err = a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, byte(2), buf[0])
}

func TestChannelClosed(t *testing.T) {
	a, b := NewPair("a", "b", testTimeout)
	require.NoError(t, b.Close())

	_, err := a.Read(make([]byte, 1))
	require.True(t, errors.Is(err, ErrUnavailable))
	_, err = a.Write([]byte{1})
	require.Error(t, err)
}

func TestOpenUnknownScheme(t *testing.T) {
	_, err := Open(context.TODO(), "up", "carrier-pigeon://coop", testTimeout)
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestOpenMissingSerial(t *testing.T) {
	_, err := Open(context.TODO(), "up", "serial:///dev/chainlink-does-not-exist", testTimeout)
	require.True(t, errors.Is(err, ErrUnavailable))
}

func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func testNetworkPair(t *testing.T, listenURL, dialURL string) {
	type result struct {
		ch  *Channel
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		ch, err := Open(context.TODO(), "down", listenURL, testTimeout)
		resCh <- result{ch, err}
	}()

	var dialer *Channel
	require.Eventually(t, func() bool {
		ch, err := Open(context.TODO(), "up", dialURL, testTimeout)
		if err != nil {
			return false
		}
		dialer = ch
		return true
	}, time.Second, 10*time.Millisecond)
	defer dialer.Close()

	res := <-resCh
	require.NoError(t, res.err)
	listener := res.ch
	defer listener.Close()

	_, err := dialer.Write([]byte{0xef, 0xbe, 1})
	require.NoError(t, err)
	buf := make([]byte, 3)
	n, err := listener.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{0xef, 0xbe, 1}, buf)

	n, err = dialer.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestOpenTCP(t *testing.T) {
	addr := freeAddr(t)
	testNetworkPair(t, "tcp+listen://"+addr, "tcp://"+addr)
}

func TestOpenWebsocket(t *testing.T) {
	addr := freeAddr(t)
	testNetworkPair(t, "ws+listen://"+addr+"/chain", "ws://"+addr+"/chain")
}
