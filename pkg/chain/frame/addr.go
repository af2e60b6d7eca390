package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// Addr is a node coordinate in the chain.
type Addr struct {
	X byte
	Y byte
}

// Sentinel addresses. The aggregator and an unassigned node share the
// same value, only the role tells them apart.
var (
	APAddr         = Addr{X: 0xff, Y: 0xff}
	UnassignedAddr = Addr{X: 0xff, Y: 0xff}
)

// IsSentinel indicates the address is the AP/unassigned sentinel.
func (a Addr) IsSentinel() bool {
	return a == APAddr
}

// String implements fmt.Stringer.
func (a Addr) String() string {
	return fmt.Sprintf("(%d,%d)", a.X, a.Y)
}

// Key returns a topic/identifier friendly form "x-y".
func (a Addr) Key() string {
	return strconv.Itoa(int(a.X)) + "-" + strconv.Itoa(int(a.Y))
}

// NextAddr computes the address assigned to the next node downstream.
// Only X is advanced. There is no overflow guard: NextAddr of X=0xfe
// yields X=0xff which collides with the sentinel when Y is 0xff too, and
// X=0xff wraps to 0.
func NextAddr(local Addr) Addr {
	return Addr{X: local.X + 1, Y: local.Y}
}

// ParseAddr parses "x,y" (decimal or 0x-prefixed hex per axis).
func ParseAddr(s string) (Addr, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Addr{}, fmt.Errorf("invalid address %q, expect x,y", s)
	}
	var vals [2]byte
	for n, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 0, 8)
		if err != nil {
			return Addr{}, fmt.Errorf("invalid address %q: %w", s, err)
		}
		vals[n] = byte(v)
	}
	return Addr{X: vals[0], Y: vals[1]}, nil
}
