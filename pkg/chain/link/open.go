package link

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// DefaultBaudRate is used for serial URLs without a baud parameter.
const DefaultBaudRate = 115200

// DialTimeout bounds connecting to network links.
var DialTimeout = 5 * time.Second

// Open opens a channel from a URL:
//
//	serial:///dev/ttyUSB0?baud=115200  (or a bare device path)
//	tcp://host:port                    dial
//	tcp+listen://:port                 accept exactly one peer
//	ws://host:port/path                websocket dial
//	ws+listen://:port/path             websocket, accept exactly one peer
//
// Listening variants block until the peer connects or ctx is done.
// Every failure wraps ErrUnavailable.
func Open(ctx context.Context, name, rawURL string, timeout time.Duration) (*Channel, error) {
	port, err := openPort(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("open %s link %q: %w: %v", name, rawURL, ErrUnavailable, err)
	}
	glog.Infof("%s link %s opened", name, rawURL)
	return NewChannel(name, port, timeout), nil
}

func openPort(ctx context.Context, rawURL string) (Port, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "", "serial":
		return openSerial(u)
	case "tcp":
		var d net.Dialer
		dctx, cancel := context.WithTimeout(ctx, DialTimeout)
		defer cancel()
		return d.DialContext(dctx, "tcp", u.Host)
	case "tcp+listen":
		return acceptTCP(ctx, u.Host)
	case "ws", "wss":
		return dialWebsocket(u)
	case "ws+listen":
		return acceptWebsocket(ctx, u)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, u.Scheme)
}

func openSerial(u *url.URL) (Port, error) {
	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if val := u.Query().Get("baud"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid baud %q: %v", val, err)
		}
		mode.BaudRate = baud
	}
	device := u.Path
	if device == "" {
		device = u.Opaque
	}
	return serial.Open(device, mode)
}

func acceptTCP(ctx context.Context, addr string) (Port, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	glog.Infof("waiting for peer on %s", ln.Addr())
	return ln.Accept()
}

func dialWebsocket(u *url.URL) (Port, error) {
	origin := "http://" + u.Host + "/"
	if u.Scheme == "wss" {
		origin = "https://" + u.Host + "/"
	}
	conn, err := websocket.Dial(u.String(), "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// wsPort keeps the websocket handler alive until the port is closed,
// the connection is torn down once the handler returns.
type wsPort struct {
	*websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
}

func (p *wsPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.Conn.Close()
		close(p.done)
		p.server.Close()
	})
	return err
}

func acceptWebsocket(ctx context.Context, u *url.URL) (Port, error) {
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	portCh := make(chan *wsPort, 1)
	var accepted sync.Once
	mux := http.NewServeMux()
	srv := &http.Server{Handler: mux}
	mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
		port := &wsPort{Conn: conn, done: make(chan struct{}), server: srv}
		conn.PayloadType = websocket.BinaryFrame
		first := false
		accepted.Do(func() { first = true })
		if !first {
			// only one peer per link.
			return
		}
		portCh <- port
		<-port.done
	}))
	go srv.Serve(ln)
	glog.Infof("waiting for websocket peer on %s%s", ln.Addr(), path)
	select {
	case port := <-portCh:
		return port, nil
	case <-ctx.Done():
		srv.Close()
		return nil, ctx.Err()
	}
}
