package gameserver

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"golang.org/x/time/rate"

	"github.com/benruijl/walledin/internal/attribute"
	"github.com/benruijl/walledin/internal/entity"
	"github.com/benruijl/walledin/internal/liveness"
	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
	"github.com/benruijl/walledin/logging"
	"github.com/benruijl/walledin/logging/lifecycle"
	"github.com/benruijl/walledin/logging/network"
)

// Login rejection reasons.
const (
	RejectServerFull  = "server_full"
	RejectRateLimited = "rate_limited"
	RejectBadName     = "bad_name"
)

func (s *Server) handle(ctx context.Context, p transport.Packet, now time.Time) {
	magic, ok := proto.Magic(p.Data)
	if !ok {
		s.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
		return
	}
	switch magic {
	case proto.GameMagic:
	case proto.MasterMagic:
		if s.announcer != nil {
			s.announcer.Handle(ctx, p)
		}
		return
	default:
		// Foreign traffic is dropped without a log line.
		s.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
		return
	}

	msg, err := proto.DecodeGame(p.Data)
	if err != nil {
		s.drop(ctx, p, err)
		return
	}

	// Only a datagram that decodes counts as proof the peer is alive.
	conn, known := s.connections[p.Addr]
	if known {
		conn.tracker.Heard(now)
	}

	switch m := msg.(type) {
	case proto.Login:
		s.login(ctx, p.Addr, m.Name, now)
	case proto.Logout:
		if known {
			s.disconnect(ctx, conn, lifecycle.ReasonLogout)
		}
	case proto.Input:
		if !known {
			return
		}
		if player, ok := s.world.Store().Get(conn.Entity); ok {
			entity.Set(player, attribute.Controls, attribute.NewKeySet(m.Keys...))
		}
	case proto.Alive:
		// Liveness was recorded above.
	default:
		s.drop(ctx, p, errors.New("unexpected "+msg.GameType().String()+" from client"))
	}
}

func (s *Server) drop(ctx context.Context, p transport.Packet, err error) {
	s.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
	if errors.Is(err, proto.ErrUnknownType) {
		s.deps.Logger.Printf("[gameserver] discarding datagram from %s: %v", p.Addr, err)
	}
	network.DatagramDropped(ctx, s.deps.Publisher, s.tick, logging.ConnectionRef(p.Addr.String()), network.DatagramDroppedPayload{
		Reason: err.Error(),
		Size:   len(p.Data),
	})
}

// login accepts a new connection, or re-arms the bootstrap of an existing
// one whose first state batch may have been lost.
func (s *Server) login(ctx context.Context, addr netip.AddrPort, name string, now time.Time) {
	actor := logging.ConnectionRef(addr.String())
	if existing, ok := s.connections[addr]; ok {
		existing.bootstrap = true
		// A peer admitted on an earlier tick has been streamed deltas since;
		// it gets this tick's delta too so no removal slips past it.
		existing.resync = existing.JoinedTick != s.tick
		return
	}
	if len(s.order) >= s.cfg.MaxPlayers {
		s.reject(ctx, actor, name, RejectServerFull)
		return
	}
	if !s.allowLogin(addr.Addr(), now) {
		s.reject(ctx, actor, name, RejectRateLimited)
		return
	}
	player, err := s.world.SpawnPlayer(name)
	if err != nil {
		s.reject(ctx, actor, name, RejectBadName)
		return
	}

	s.addConnection(&Connection{
		Addr:       addr,
		Entity:     player.Name(),
		JoinedTick: s.tick,
		JoinedAt:   now,
		tracker:    liveness.New(s.cfg.Liveness, now),
		bootstrap:  true,
	})
	s.deps.Metrics.Add(telemetry.LoginsAccepted, 1)
	pos, _ := entity.Get(player, attribute.Position)
	lifecycle.PlayerJoined(ctx, s.deps.Publisher, s.tick, actor, lifecycle.PlayerJoinedPayload{
		Requested: name,
		Assigned:  player.Name(),
		SpawnX:    pos.X,
		SpawnY:    pos.Y,
	})
}

func (s *Server) reject(ctx context.Context, actor logging.EntityRef, name, reason string) {
	s.deps.Metrics.Add(telemetry.LoginsRejected, 1)
	lifecycle.LoginRejected(ctx, s.deps.Publisher, s.tick, actor, lifecycle.LoginRejectedPayload{
		Requested: name,
		Reason:    reason,
	})
}

type loginLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// allowLogin rate limits LOGINs per source IP so one noisy host cannot lock
// everyone else out.
func (s *Server) allowLogin(ip netip.Addr, now time.Time) bool {
	entry, ok := s.logins[ip]
	if !ok {
		entry = &loginLimiter{limiter: rate.NewLimiter(rate.Limit(s.cfg.LoginRate), s.cfg.LoginBurst)}
		s.logins[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// pruneLogins forgets hosts whose bucket has had time to refill.
func (s *Server) pruneLogins(now time.Time) {
	idle := time.Duration(float64(s.cfg.LoginBurst) / s.cfg.LoginRate * float64(time.Second))
	for ip, entry := range s.logins {
		if now.Sub(entry.lastSeen) > idle {
			delete(s.logins, ip)
		}
	}
}
