// Package gameserver runs the authoritative tick: inbound drain, simulation
// step, liveness sweep, replication flush and master announcements.
package gameserver

import (
	"context"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/benruijl/walledin/internal/master"
	"github.com/benruijl/walledin/internal/replication"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
	"github.com/benruijl/walledin/internal/world"
	"github.com/benruijl/walledin/logging"
)

// Announcer advertises the server to a master server. It receives every
// datagram carrying the master protocol magic.
type Announcer interface {
	Handle(ctx context.Context, p transport.Packet)
	Tick(ctx context.Context, now time.Time, status master.Status)
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

// Server owns the world and every connection. All state is touched only
// from Tick, which implements sim.Ticker.
type Server struct {
	cfg       Config
	conn      transport.Conn
	world     *world.World
	sim       world.Simulation
	engine    *replication.Engine
	announcer Announcer
	logins    map[netip.Addr]*loginLimiter
	deps      Deps

	tick        uint64
	connections map[netip.AddrPort]*Connection
	order       []*Connection

	diagnostics atomic.Pointer[Diagnostics]
}

type Option func(*Server)

// WithSimulation replaces the default Drift simulation.
func WithSimulation(sim world.Simulation) Option {
	return func(s *Server) {
		if sim != nil {
			s.sim = sim
		}
	}
}

func WithAnnouncer(a Announcer) Option {
	return func(s *Server) {
		s.announcer = a
	}
}

func New(cfg Config, conn transport.Conn, deps Deps, opts ...Option) *Server {
	cfg = cfg.normalized()
	deps = deps.withDefaults()
	w := world.New(cfg.World)
	s := &Server{
		cfg:   cfg,
		conn:  conn,
		world: w,
		sim:   world.Drift{},
		engine: replication.NewEngine(w.Store(), conn, cfg.Replication, replication.Deps{
			Logger:    deps.Logger,
			Metrics:   deps.Metrics,
			Publisher: deps.Publisher,
		}),
		logins:      make(map[netip.Addr]*loginLimiter),
		deps:        deps,
		connections: make(map[netip.AddrPort]*Connection),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.diagnostics.Store(&Diagnostics{})
	return s
}

func (s *Server) World() *world.World {
	return s.world
}

func (s *Server) Config() Config {
	return s.cfg
}

// CurrentTick is only meaningful on the tick goroutine; other readers use
// Diagnostics.
func (s *Server) CurrentTick() uint64 {
	return s.tick
}

// Tick runs one fixed-rate step. Inbound effects are applied before the
// outbound state of the same tick is computed.
func (s *Server) Tick(ctx context.Context, now time.Time, dt time.Duration) error {
	s.tick++

	for _, p := range transport.Drain(s.conn, s.cfg.MaxDrain) {
		s.handle(ctx, p, now)
	}

	s.sim.Advance(s.world, dt)

	s.sweep(ctx, now)
	s.pruneLogins(now)

	peers := make([]replication.Peer, 0, len(s.order))
	for _, c := range s.order {
		peers = append(peers, replication.Peer{Addr: c.Addr, Bootstrap: c.bootstrap, Resync: c.resync})
		c.bootstrap, c.resync = false, false
	}
	report := s.engine.Flush(ctx, s.tick, peers)

	if s.announcer != nil {
		s.announcer.Tick(ctx, now, s.status())
	}

	s.publishDiagnostics(now, report)
	return nil
}

func (s *Server) status() master.Status {
	return master.Status{
		Players:    int32(len(s.order)),
		MaxPlayers: int32(s.cfg.MaxPlayers),
	}
}
