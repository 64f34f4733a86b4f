// Package master implements the discovery service: a registry of game
// servers kept honest by nonce challenges, and the game-server side that
// advertises to it.
package master

import (
	"context"
	"net/netip"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
	"github.com/benruijl/walledin/logging"
	"github.com/benruijl/walledin/logging/network"
	"github.com/benruijl/walledin/logging/registry"
)

const registrySizeMetricKey = "registry_size"

// Feed receives a copy of the registry whenever it changes.
type Feed interface {
	Publish(entries []Entry)
}

type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.LoggerFunc(nil)
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	return d
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Server is the master server. Tick implements sim.Ticker; everything but
// Servers must be called from the tick goroutine.
type Server struct {
	cfg        Config
	conn       transport.Conn
	registry   *Registry
	challenger *Challenger
	limiters   map[netip.AddrPort]*limiterEntry
	feed       Feed
	deps       Deps

	snapshot atomic.Pointer[[]Entry]
}

type Option func(*Server)

func WithFeed(feed Feed) Option {
	return func(s *Server) {
		s.feed = feed
	}
}

// WithChallenger replaces the crypto/rand backed challenger.
func WithChallenger(c *Challenger) Option {
	return func(s *Server) {
		if c != nil {
			s.challenger = c
		}
	}
}

func NewServer(cfg Config, conn transport.Conn, deps Deps, opts ...Option) *Server {
	cfg = cfg.normalized()
	s := &Server{
		cfg:        cfg,
		conn:       conn,
		registry:   NewRegistry(cfg.Timeout, cfg.Capacity),
		challenger: NewChallenger(cfg.ChallengeInterval, nil),
		limiters:   make(map[netip.AddrPort]*limiterEntry),
		deps:       deps.withDefaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := []Entry{}
	s.snapshot.Store(&empty)
	return s
}

func (s *Server) Registry() *Registry {
	return s.registry
}

// Servers returns the registry as of the last tick. Safe from any goroutine.
func (s *Server) Servers() []Entry {
	return *s.snapshot.Load()
}

// Tick drains inbound datagrams, issues a challenge when one is due and
// sweeps stale entries.
func (s *Server) Tick(ctx context.Context, now time.Time, _ time.Duration) error {
	changed := false
	for _, p := range transport.Drain(s.conn, s.cfg.MaxDrain) {
		if s.handle(ctx, p, now) {
			changed = true
		}
	}

	if s.registry.Len() > 0 && s.challenger.Due(now) {
		s.challenge(ctx, now)
	}

	for _, e := range s.registry.Sweep(now) {
		changed = true
		s.deps.Metrics.Add(telemetry.ServersEvicted, 1)
		registry.ServerEvicted(ctx, s.deps.Publisher, logging.ServerRef(e.Addr.String()), registry.EvictedPayload{
			AgeMillis: now.Sub(e.LastSeen).Milliseconds(),
		})
	}
	s.pruneLimiters(now)

	if changed {
		s.publish()
	}
	return nil
}

func (s *Server) publish() {
	entries := s.registry.List()
	s.snapshot.Store(&entries)
	s.deps.Metrics.Store(registrySizeMetricKey, uint64(len(entries)))
	if s.feed != nil {
		s.feed.Publish(entries)
	}
}

// handle applies one datagram and reports whether the registry changed.
// Challenge responses that verify are never rate limited: co-hosted servers
// all answer every challenge and must not starve each other.
func (s *Server) handle(ctx context.Context, p transport.Packet, now time.Time) bool {
	if magic, ok := proto.Magic(p.Data); !ok || magic != proto.MasterMagic {
		s.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
		return false
	}
	msg, err := proto.DecodeMaster(p.Data)
	if err != nil {
		if !s.allow(p.Addr, now) {
			s.deps.Metrics.Add(telemetry.QueriesLimited, 1)
			return false
		}
		s.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
		s.deps.Logger.Printf("[master] discarding datagram from %s: %v", p.Addr, err)
		network.DatagramDropped(ctx, s.deps.Publisher, 0, logging.ConnectionRef(p.Addr.String()), network.DatagramDroppedPayload{
			Reason: err.Error(),
			Size:   len(p.Data),
		})
		return false
	}

	if m, ok := msg.(proto.ChallengeResponse); ok && s.challenger.Verify(m.Nonce) && s.registry.Contains(p.Addr) {
		return s.verify(ctx, p.Addr, m.Nonce, now)
	}
	if !s.allow(p.Addr, now) {
		s.deps.Metrics.Add(telemetry.QueriesLimited, 1)
		return false
	}

	switch m := msg.(type) {
	case proto.GetServers:
		s.reply(ctx, p.Addr)
	case proto.ServerNotification:
		return s.notify(ctx, p.Addr, m, now)
	case proto.ChallengeResponse:
		return s.verify(ctx, p.Addr, m.Nonce, now)
	default:
		s.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
	}
	return false
}

// notify registers the sender under its source address. The advertised IP
// is always the source IP; only the port may come from the payload.
func (s *Server) notify(ctx context.Context, src netip.AddrPort, n proto.ServerNotification, now time.Time) bool {
	payload := registry.ServerPayload{Name: n.Name, Players: n.Players, MaxPlayers: n.MaxPlayers, Mode: n.Mode}
	actor := logging.ServerRef(advertised(src, n.Port).String())

	created, err := s.registry.Notify(src, n, now)
	if err != nil {
		registry.RegistryFull(ctx, s.deps.Publisher, actor, payload)
		return false
	}
	if created {
		s.deps.Metrics.Add(telemetry.ServersRegistered, 1)
		registry.ServerRegistered(ctx, s.deps.Publisher, actor, payload)
	} else {
		registry.ServerUpdated(ctx, s.deps.Publisher, actor, payload)
	}
	return true
}

func (s *Server) verify(ctx context.Context, src netip.AddrPort, nonce uint64, now time.Time) bool {
	actor := logging.ServerRef(src.String())
	if !s.challenger.Verify(nonce) || !s.registry.Refresh(src, now) {
		s.deps.Metrics.Add(telemetry.ChallengesIgnored, 1)
		registry.ChallengeIgnored(ctx, s.deps.Publisher, actor, registry.ChallengePayload{Nonce: nonce})
		return false
	}
	s.deps.Metrics.Add(telemetry.ChallengesAccepted, 1)
	registry.ServerRefreshed(ctx, s.deps.Publisher, actor)
	return true
}

func (s *Server) challenge(ctx context.Context, now time.Time) {
	nonce, err := s.challenger.Issue(now)
	if err != nil {
		s.deps.Logger.Printf("[master] %v", err)
		return
	}
	data := proto.EncodeMaster(proto.Challenge{Nonce: nonce})
	entries := s.registry.List()
	for _, e := range entries {
		if err := s.conn.Send(e.Source, data); err != nil {
			s.deps.Metrics.Add(telemetry.SendFailures, 1)
			s.deps.Logger.Printf("[master] challenge to %s failed: %v", e.Source, err)
		}
	}
	s.deps.Metrics.Add(telemetry.ChallengesIssued, 1)
	registry.ChallengeIssued(ctx, s.deps.Publisher, registry.ChallengePayload{Nonce: nonce, Recipients: len(entries)})
}

// reply answers GET_SERVERS with the whole registry in one datagram.
// Entries that would push the datagram past MaxReply are left out.
func (s *Server) reply(ctx context.Context, to netip.AddrPort) {
	entries := s.registry.List()
	size := proto.HeaderSize + 4
	infos := make([]proto.ServerInfo, 0, len(entries))
	for _, e := range entries {
		info := e.Info()
		n := proto.ServerInfoSize(info)
		if size+n > s.cfg.MaxReply {
			s.deps.Logger.Printf("[master] SERVERS reply to %s truncated at %d of %d entries", to, len(infos), len(entries))
			break
		}
		size += n
		infos = append(infos, info)
	}
	if err := s.conn.Send(to, proto.EncodeMaster(proto.Servers{Servers: infos})); err != nil {
		s.deps.Metrics.Add(telemetry.SendFailures, 1)
		s.deps.Logger.Printf("[master] reply to %s failed: %v", to, err)
		return
	}
	s.deps.Metrics.Add(telemetry.QueriesServed, 1)
	registry.QueryServed(ctx, s.deps.Publisher, logging.ConnectionRef(to.String()), registry.QueryPayload{Servers: len(infos)})
}

// allow spends a token from the bucket of the sending socket. Buckets are
// per address and port so game servers sharing a host are limited apart.
func (s *Server) allow(src netip.AddrPort, now time.Time) bool {
	entry, ok := s.limiters[src]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.cfg.QueryRate), s.cfg.QueryBurst)}
		s.limiters[src] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// pruneLimiters forgets sources that have been quiet long enough for their
// bucket to refill.
func (s *Server) pruneLimiters(now time.Time) {
	idle := time.Duration(float64(s.cfg.QueryBurst)/s.cfg.QueryRate*float64(time.Second)) + s.cfg.Timeout
	for src, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > idle {
			delete(s.limiters, src)
		}
	}
}
