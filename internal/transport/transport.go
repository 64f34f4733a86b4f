// Package transport moves datagrams between peers. Delivery is best effort:
// packets may be lost, duplicated or reordered and nothing here retries.
package transport

import (
	"errors"
	"net/netip"
	"time"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: connection closed")

// Packet is one received datagram.
type Packet struct {
	Addr netip.AddrPort
	Data []byte
	At   time.Time
}

// Conn is a datagram endpoint. Received packets are queued on the channel
// returned by Packets, which is closed when the Conn is closed.
type Conn interface {
	Packets() <-chan Packet
	Send(addr netip.AddrPort, data []byte) error
	LocalAddr() netip.AddrPort
	Close() error
}

// Sender is the outbound half of a Conn.
type Sender interface {
	Send(addr netip.AddrPort, data []byte) error
}

// Drain returns the packets already queued on conn without blocking. At most
// limit packets are returned when limit is positive.
func Drain(conn Conn, limit int) []Packet {
	var out []Packet
	packets := conn.Packets()
	for limit <= 0 || len(out) < limit {
		select {
		case p, ok := <-packets:
			if !ok {
				return out
			}
			out = append(out, p)
		default:
			return out
		}
	}
	return out
}
