package client

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/benruijl/walledin/internal/entity"
	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
	"github.com/benruijl/walledin/logging"
	"github.com/benruijl/walledin/logging/network"
)

const (
	DefaultInputInterval = 50 * time.Millisecond
	DefaultLoginRetry    = time.Second
)

type Config struct {
	// Server is the game server's host:port.
	Server        string        `json:"server"`
	Name          string        `json:"name"`
	InputInterval time.Duration `json:"inputInterval"`
	LoginRetry    time.Duration `json:"loginRetry"`
}

// InputSource reports the input codes held down right now.
type InputSource interface {
	Keys() []uint16
}

type InputFunc func() []uint16

func (f InputFunc) Keys() []uint16 {
	return f()
}

// Frame is what the render activity sees each interval.
type Frame struct {
	At       time.Time
	Joined   bool
	Entities []EntityView
}

type Renderer interface {
	Render(Frame)
}

type RenderFunc func(Frame)

func (f RenderFunc) Render(frame Frame) {
	f(frame)
}

type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Agent runs the two client activities: the I/O loop that blocks on the
// socket and applies state, and the frame loop that reads the mirror and
// sends input. They share only the Mirror and the joined flag.
//
// The agent counts as joined once a batch creates its own player, which only
// a bootstrap guarantees; deltas that reach it before then do not stop the
// LOGIN retries.
type Agent struct {
	cfg      Config
	name     string
	server   netip.AddrPort
	conn     transport.Conn
	mirror   *Mirror
	input    InputSource
	renderer Renderer
	deps     Deps

	joined atomic.Bool
	faults atomic.Uint64
}

func NewAgent(cfg Config, conn transport.Conn, input InputSource, renderer Renderer, deps Deps) (*Agent, error) {
	addr, err := netip.ParseAddrPort(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("client: server address %q: %w", cfg.Server, err)
	}
	if cfg.InputInterval <= 0 {
		cfg.InputInterval = DefaultInputInterval
	}
	if cfg.LoginRetry <= 0 {
		cfg.LoginRetry = DefaultLoginRetry
	}
	if input == nil {
		input = InputFunc(func() []uint16 { return nil })
	}
	if renderer == nil {
		renderer = RenderFunc(func(Frame) {})
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.LoggerFunc(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	return &Agent{
		cfg:      cfg,
		name:     strings.TrimSpace(cfg.Name),
		server:   netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port()),
		conn:     conn,
		mirror:   NewMirror(),
		input:    input,
		renderer: renderer,
		deps:     deps,
	}, nil
}

func (a *Agent) Mirror() *Mirror {
	return a.mirror
}

// Joined reports whether the agent's own player has been created in the
// mirror.
func (a *Agent) Joined() bool {
	return a.joined.Load()
}

// Faults counts decode faults seen in GAMESTATE batches.
func (a *Agent) Faults() uint64 {
	return a.faults.Load()
}

// Run logs in and drives both activities until ctx ends or the connection
// closes. A LOGOUT is sent on the way out.
func (a *Agent) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.receive(gctx) })
	g.Go(func() error { return a.frames(gctx) })
	err := g.Wait()
	if sendErr := a.send(proto.Logout{}); sendErr != nil && !errors.Is(sendErr, transport.ErrClosed) {
		a.deps.Logger.Printf("[client] logout failed: %v", sendErr)
	}
	return err
}

func (a *Agent) send(msg proto.GameMessage) error {
	return a.conn.Send(a.server, proto.EncodeGame(msg))
}

// receive is the I/O activity. Heartbeat probes are answered before
// anything else is done with the datagram.
func (a *Agent) receive(ctx context.Context) error {
	packets := a.conn.Packets()
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-packets:
			if !ok {
				return transport.ErrClosed
			}
			if p.Addr != a.server {
				continue
			}
			a.handle(ctx, p)
		}
	}
}

func (a *Agent) handle(ctx context.Context, p transport.Packet) {
	if magic, ok := proto.Magic(p.Data); !ok || magic != proto.GameMagic {
		a.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
		return
	}
	msg, err := proto.DecodeGame(p.Data)
	switch m := msg.(type) {
	case proto.Alive:
		if err := a.send(proto.Alive{}); err != nil {
			a.deps.Logger.Printf("[client] heartbeat reply failed: %v", err)
		}
	case proto.GameState:
		// A batch aborted part way still carries the sub-messages before
		// the fault; the next tick resynchronises the rest.
		a.mirror.Apply(m)
		if !a.joined.Load() && a.createsSelf(m) {
			a.joined.Store(true)
		}
		if faults := len(m.Faults); faults > 0 || err != nil {
			a.recordFaults(ctx, m, err)
		}
	default:
		if err != nil {
			a.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
			a.deps.Logger.Printf("[client] discarding datagram: %v", err)
		}
	}
}

// createsSelf reports whether the batch carries the CREATE of the player the
// server spawned for this agent's LOGIN, possibly renamed on collision.
func (a *Agent) createsSelf(m proto.GameState) bool {
	for _, msg := range m.Entities {
		if msg.Op == proto.SubCreate && msg.Family == string(entity.FamilyPlayer) && entity.NamedAfter(msg.Name, a.name) {
			return true
		}
	}
	return false
}

func (a *Agent) recordFaults(ctx context.Context, m proto.GameState, err error) {
	reasons := make([]string, 0, len(m.Faults)+1)
	for _, f := range m.Faults {
		reasons = append(reasons, f.Error())
	}
	if err != nil {
		reasons = append(reasons, err.Error())
	}
	a.faults.Add(uint64(len(reasons)))
	a.deps.Metrics.Add(telemetry.DecodeFaults, uint64(len(reasons)))
	network.DecodeFault(ctx, a.deps.Publisher, 0, logging.ConnectionRef(a.server.String()), network.DecodeFaultPayload{Faults: reasons})
}

// frames is the simulation/render activity. LOGIN is repeated until the
// bootstrap has arrived; after that INPUT goes out every interval.
func (a *Agent) frames(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.InputInterval)
	defer ticker.Stop()

	if err := a.send(proto.Login{Name: a.cfg.Name}); err != nil {
		return fmt.Errorf("client: login: %w", err)
	}
	lastLogin := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			joined := a.joined.Load()
			if !joined {
				if now.Sub(lastLogin) >= a.cfg.LoginRetry {
					lastLogin = now
					if err := a.send(proto.Login{Name: a.cfg.Name}); err != nil {
						a.deps.Logger.Printf("[client] login retry failed: %v", err)
					}
				}
			} else if err := a.send(proto.Input{Keys: a.input.Keys()}); err != nil {
				a.deps.Logger.Printf("[client] input failed: %v", err)
			}
			a.renderer.Render(Frame{At: now, Joined: joined, Entities: a.mirror.Snapshot()})
		}
	}
}
