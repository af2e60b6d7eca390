package link

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"
)

// NewPair creates two in-memory channels connected to each other: bytes
// written to one are read from the other. Writes never block.
func NewPair(nameA, nameB string, timeout time.Duration) (*Channel, *Channel) {
	ab, ba := newMemBuffer(), newMemBuffer()
	a := &memPort{in: ba, out: ab}
	b := &memPort{in: ab, out: ba}
	return NewChannel(nameA, a, timeout), NewChannel(nameB, b, timeout)
}

type memBuffer struct {
	lock   sync.Mutex
	buf    bytes.Buffer
	closed bool
	notify chan struct{}
}

func newMemBuffer() *memBuffer {
	return &memBuffer{notify: make(chan struct{}, 1)}
}

func (b *memBuffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

type memPort struct {
	in       *memBuffer
	out      *memBuffer
	deadline time.Time
}

func (p *memPort) SetReadDeadline(t time.Time) error {
	p.deadline = t
	return nil
}

func (p *memPort) Read(data []byte) (int, error) {
	var expire <-chan time.Time
	if !p.deadline.IsZero() {
		remain := time.Until(p.deadline)
		if remain <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(remain)
		defer timer.Stop()
		expire = timer.C
	}
	for {
		p.in.lock.Lock()
		if p.in.buf.Len() > 0 {
			n, _ := p.in.buf.Read(data)
			p.in.lock.Unlock()
			return n, nil
		}
		closed := p.in.closed
		p.in.lock.Unlock()
		if closed {
			return 0, io.EOF
		}
		select {
		case <-p.in.notify:
		case <-expire:
			return 0, os.ErrDeadlineExceeded
		}
	}
}

func (p *memPort) Write(data []byte) (int, error) {
	p.out.lock.Lock()
	if p.out.closed {
		p.out.lock.Unlock()
		return 0, io.ErrClosedPipe
	}
	n, _ := p.out.buf.Write(data)
	p.out.lock.Unlock()
	p.out.signal()
	return n, nil
}

func (p *memPort) Close() error {
	for _, b := range []*memBuffer{p.in, p.out} {
		b.lock.Lock()
		b.closed = true
		b.lock.Unlock()
		b.signal()
	}
	return nil
}
