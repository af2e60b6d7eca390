package link

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultTimeout is the read timeout used when none is configured.
const DefaultTimeout = 100 * time.Millisecond

// Port is the raw device behind a Channel.
type Port interface {
	io.ReadWriteCloser
}

// deadlinePort is satisfied by net.Conn based ports.
type deadlinePort interface {
	SetReadDeadline(time.Time) error
}

// timeoutPort is satisfied by serial ports.
type timeoutPort interface {
	SetReadTimeout(time.Duration) error
}

// Channel is a byte stream with bounded blocking reads.
type Channel struct {
	Name    string
	Timeout time.Duration

	port Port
}

// NewChannel wraps a Port.
func NewChannel(name string, port Port, timeout time.Duration) *Channel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Channel{Name: name, Timeout: timeout, port: port}
}

// Port returns the wrapped port.
func (c *Channel) Port() Port {
	return c.port
}

// Read fills p until it's full or the timeout expires, whichever comes
// first. Expiry is not an error, the returned count is simply short
// (possibly 0). Any other read failure wraps ErrUnavailable.
func (c *Channel) Read(p []byte) (int, error) {
	deadline := time.Now().Add(c.Timeout)
	n := 0
	for n < len(p) {
		remain := time.Until(deadline)
		if remain <= 0 {
			break
		}
		if err := c.arm(deadline, remain); err != nil {
			return n, c.unavailable(err)
		}
		m, err := c.port.Read(p[n:])
		n += m
		if err != nil {
			if isTimeout(err) {
				break
			}
			return n, c.unavailable(err)
		}
		if m == 0 {
			// serial ports report expiry this way.
			break
		}
	}
	return n, nil
}

// Write writes p to the port. No retry is attempted.
func (c *Channel) Write(p []byte) (int, error) {
	n, err := c.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("%s write: %w", c.Name, err)
	}
	return n, nil
}

// Close implements io.Closer.
func (c *Channel) Close() error {
	return c.port.Close()
}

func (c *Channel) arm(deadline time.Time, remain time.Duration) error {
	switch p := c.port.(type) {
	case deadlinePort:
		return p.SetReadDeadline(deadline)
	case timeoutPort:
		return p.SetReadTimeout(remain)
	}
	return nil
}

func (c *Channel) unavailable(err error) error {
	return fmt.Errorf("%s: %w: %v", c.Name, ErrUnavailable, err)
}

func isTimeout(err error) bool {
	return os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded)
}
