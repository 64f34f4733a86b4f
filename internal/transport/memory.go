package transport

import (
	"errors"
	"net/netip"
	"sync"
	"time"
)

// ErrAddrInUse is returned by Network.Listen for a taken address.
var ErrAddrInUse = errors.New("transport: address in use")

// Filter decides whether a datagram in flight on a Network is delivered.
type Filter func(from, to netip.AddrPort, data []byte) bool

// Network is an in-process datagram network. Sends to unknown addresses are
// silently lost, as they would be on a real network.
type Network struct {
	mu        sync.Mutex
	endpoints map[netip.AddrPort]*MemConn
	nextPort  uint16
	filter    Filter
	queueSize int
}

func NewNetwork() *Network {
	return &Network{
		endpoints: make(map[netip.AddrPort]*MemConn),
		nextPort:  40000,
		queueSize: DefaultQueueSize,
	}
}

// SetFilter installs a delivery filter; nil delivers everything.
func (n *Network) SetFilter(f Filter) {
	n.mu.Lock()
	n.filter = f
	n.mu.Unlock()
}

// Listen attaches an endpoint. A zero port is replaced by a free one.
func (n *Network) Listen(addr netip.AddrPort) (*MemConn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !addr.Addr().IsValid() {
		addr = netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), addr.Port())
	}
	if addr.Port() == 0 {
		for {
			n.nextPort++
			candidate := netip.AddrPortFrom(addr.Addr(), n.nextPort)
			if _, taken := n.endpoints[candidate]; !taken {
				addr = candidate
				break
			}
		}
	}
	if _, taken := n.endpoints[addr]; taken {
		return nil, ErrAddrInUse
	}
	c := &MemConn{net: n, addr: addr, packets: make(chan Packet, n.queueSize)}
	n.endpoints[addr] = c
	return c, nil
}

func (n *Network) deliver(from, to netip.AddrPort, data []byte) {
	n.mu.Lock()
	dst := n.endpoints[to]
	filter := n.filter
	n.mu.Unlock()
	if dst == nil {
		return
	}
	if filter != nil && !filter(from, to, data) {
		return
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	dst.enqueue(Packet{Addr: from, Data: copied, At: time.Now()})
}

func (n *Network) detach(addr netip.AddrPort) {
	n.mu.Lock()
	delete(n.endpoints, addr)
	n.mu.Unlock()
}

// MemConn is an endpoint on a Network.
type MemConn struct {
	net     *Network
	addr    netip.AddrPort
	mu      sync.Mutex
	closed  bool
	packets chan Packet
	sent    int
}

func (c *MemConn) enqueue(p Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.packets <- p:
	default:
	}
}

func (c *MemConn) Packets() <-chan Packet {
	return c.packets
}

func (c *MemConn) Send(addr netip.AddrPort, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.sent++
	c.mu.Unlock()
	c.net.deliver(c.addr, addr, data)
	return nil
}

// Sent counts the datagrams handed to Send.
func (c *MemConn) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

func (c *MemConn) LocalAddr() netip.AddrPort {
	return c.addr
}

func (c *MemConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.packets)
	c.mu.Unlock()
	c.net.detach(c.addr)
	return nil
}
