package gameserver

import (
	"context"
	"net/netip"
	"slices"
	"time"

	"github.com/benruijl/walledin/internal/liveness"
	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/logging"
	"github.com/benruijl/walledin/logging/lifecycle"
	"github.com/benruijl/walledin/logging/network"
)

// Connection is the server side of one client address.
type Connection struct {
	Addr       netip.AddrPort
	Entity     string
	JoinedTick uint64
	JoinedAt   time.Time

	tracker   *liveness.Tracker
	bootstrap bool
	resync    bool
}

func (c *Connection) State() liveness.State {
	return c.tracker.State()
}

// Connection looks up the connection for addr.
func (s *Server) Connection(addr netip.AddrPort) (*Connection, bool) {
	c, ok := s.connections[addr]
	return c, ok
}

func (s *Server) Connections() []*Connection {
	return slices.Clone(s.order)
}

func (s *Server) addConnection(c *Connection) {
	s.connections[c.Addr] = c
	s.order = append(s.order, c)
}

// disconnect stops replication to the address at once and schedules the
// controlled entity for removal so the other peers see a REMOVE this tick.
func (s *Server) disconnect(ctx context.Context, c *Connection, reason string) {
	if _, ok := s.connections[c.Addr]; !ok {
		return
	}
	delete(s.connections, c.Addr)
	s.order = slices.DeleteFunc(s.order, func(candidate *Connection) bool { return candidate == c })
	s.world.Remove(c.Entity)
	lifecycle.PlayerLeft(ctx, s.deps.Publisher, s.tick, logging.ConnectionRef(c.Addr.String()), lifecycle.PlayerLeftPayload{
		Entity: c.Entity,
		Reason: reason,
	})
}

// sweep advances every liveness tracker, probing silent peers and tearing
// down dead ones. It runs every tick whether or not anything arrived.
func (s *Server) sweep(ctx context.Context, now time.Time) {
	var dead []*Connection
	for _, c := range s.order {
		switch c.tracker.Tick(now) {
		case liveness.Probe:
			s.probe(ctx, c, now)
		case liveness.Expire:
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		s.deps.Metrics.Add(telemetry.ConnectionsExpired, 1)
		s.deps.Logger.Printf("[gameserver] %s (%s) timed out", c.Addr, c.Entity)
		s.disconnect(ctx, c, lifecycle.ReasonTimeout)
	}
}

func (s *Server) probe(ctx context.Context, c *Connection, now time.Time) {
	s.deps.Metrics.Add(telemetry.ProbesSent, 1)
	network.ProbeSent(ctx, s.deps.Publisher, s.tick, logging.ConnectionRef(c.Addr.String()), network.ProbeSentPayload{
		SilentMillis: now.Sub(c.tracker.LastHeard()).Milliseconds(),
	})
	if err := s.conn.Send(c.Addr, proto.EncodeGame(proto.Alive{})); err != nil {
		s.deps.Metrics.Add(telemetry.SendFailures, 1)
		s.deps.Logger.Printf("[gameserver] probe to %s failed: %v", c.Addr, err)
	}
}
