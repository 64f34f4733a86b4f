package transport

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benruijl/walledin/internal/telemetry"
)

const (
	DefaultQueueSize   = 1024
	DefaultMaxDatagram = 65507
)

type UDPConfig struct {
	// Addr is the local address to bind, for example ":7777". Empty binds
	// an ephemeral port on all interfaces.
	Addr        string
	QueueSize   int
	MaxDatagram int
}

// UDP is a Conn over a real socket. A reader goroutine blocks on the socket
// and hands datagrams to a bounded queue; when the queue is full the
// datagram is dropped, which the protocol tolerates.
type UDP struct {
	conn    *net.UDPConn
	packets chan Packet
	logger  telemetry.Logger
	metrics telemetry.Metrics

	closed  atomic.Bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func ListenUDP(cfg UDPConfig, logger telemetry.Logger, metrics telemetry.Metrics) (*UDP, error) {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	laddr, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", cfg.Addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %q: %w", cfg.Addr, err)
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = DefaultQueueSize
	}
	maxDatagram := cfg.MaxDatagram
	if maxDatagram <= 0 {
		maxDatagram = DefaultMaxDatagram
	}
	u := &UDP{
		conn:    conn,
		packets: make(chan Packet, queue),
		logger:  logger,
		metrics: metrics,
	}
	u.wg.Add(1)
	go u.readLoop(maxDatagram)
	return u, nil
}

func (u *UDP) readLoop(maxDatagram int) {
	defer u.wg.Done()
	defer close(u.packets)
	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := u.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if u.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			u.logger.Printf("[transport] read failed: %v", err)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		packet := Packet{Addr: normalize(addr), Data: data, At: time.Now()}
		select {
		case u.packets <- packet:
			u.metrics.Add(telemetry.DatagramsIn, 1)
		default:
			u.dropped.Add(1)
			u.metrics.Add(telemetry.DatagramsDropped, 1)
		}
	}
}

func (u *UDP) Packets() <-chan Packet {
	return u.packets
}

func (u *UDP) Send(addr netip.AddrPort, data []byte) error {
	if u.closed.Load() {
		return ErrClosed
	}
	if _, err := u.conn.WriteToUDPAddrPort(data, addr); err != nil {
		return fmt.Errorf("transport: send to %s: %w", addr, err)
	}
	u.metrics.Add(telemetry.DatagramsOut, 1)
	u.metrics.Add(telemetry.BytesOut, uint64(len(data)))
	return nil
}

func (u *UDP) LocalAddr() netip.AddrPort {
	if addr, ok := u.conn.LocalAddr().(*net.UDPAddr); ok {
		return normalize(addr.AddrPort())
	}
	return netip.AddrPort{}
}

// Dropped reports how many datagrams were discarded because the queue was full.
func (u *UDP) Dropped() uint64 {
	return u.dropped.Load()
}

func (u *UDP) Close() error {
	if !u.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := u.conn.Close()
	u.wg.Wait()
	return err
}

// normalize strips the IPv4-in-IPv6 mapping dual-stack sockets report so the
// same peer always has the same key.
func normalize(addr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}
