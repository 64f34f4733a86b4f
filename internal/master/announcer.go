package master

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
)

const DefaultAnnounceInterval = 5 * time.Second

// Status is the part of an advertisement that changes while a server runs.
type Status struct {
	Players    int32
	MaxPlayers int32
}

type AnnouncerConfig struct {
	// Master is the master server's host:port.
	Master   string        `json:"master"`
	Interval time.Duration `json:"interval"`
	Name     string        `json:"name"`
	Mode     string        `json:"mode"`
	// Port is advertised in notifications; zero lets the master use the
	// datagram's source port.
	Port uint16 `json:"port"`
}

// Announcer is the game-server side of discovery. It sends a notification
// every Interval and answers challenges as soon as they arrive. It must
// share the game server's socket so the master sees one address.
type Announcer struct {
	cfg    AnnouncerConfig
	master netip.AddrPort
	sender transport.Sender
	deps   Deps

	lastSent time.Time
	answered uint64
}

func NewAnnouncer(cfg AnnouncerConfig, sender transport.Sender, deps Deps) (*Announcer, error) {
	addr, err := netip.ParseAddrPort(cfg.Master)
	if err != nil {
		return nil, fmt.Errorf("master: announcer address %q: %w", cfg.Master, err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAnnounceInterval
	}
	return &Announcer{
		cfg:    cfg,
		master: netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port()),
		sender: sender,
		deps:   deps.withDefaults(),
	}, nil
}

// Handle answers a CHALLENGE from the configured master. Anything else,
// or anything from another address, is ignored.
func (a *Announcer) Handle(_ context.Context, p transport.Packet) {
	if p.Addr != a.master {
		a.deps.Metrics.Add(telemetry.DatagramsDropped, 1)
		return
	}
	msg, err := proto.DecodeMaster(p.Data)
	if err != nil {
		a.deps.Logger.Printf("[announcer] discarding datagram from master: %v", err)
		return
	}
	challenge, ok := msg.(proto.Challenge)
	if !ok {
		return
	}
	if err := a.sender.Send(a.master, proto.EncodeMaster(proto.ChallengeResponse{Nonce: challenge.Nonce})); err != nil {
		a.deps.Metrics.Add(telemetry.SendFailures, 1)
		a.deps.Logger.Printf("[announcer] challenge response failed: %v", err)
		return
	}
	a.answered++
}

// Tick sends a notification when one is due.
func (a *Announcer) Tick(_ context.Context, now time.Time, status Status) {
	if !a.lastSent.IsZero() && now.Sub(a.lastSent) < a.cfg.Interval {
		return
	}
	a.lastSent = now
	n := proto.ServerNotification{
		Port:       a.cfg.Port,
		Name:       a.cfg.Name,
		Players:    status.Players,
		MaxPlayers: status.MaxPlayers,
		Mode:       a.cfg.Mode,
	}
	if err := a.sender.Send(a.master, proto.EncodeMaster(n)); err != nil {
		a.deps.Metrics.Add(telemetry.SendFailures, 1)
		a.deps.Logger.Printf("[announcer] notification failed: %v", err)
	}
}

// Answered counts challenges echoed back to the master.
func (a *Announcer) Answered() uint64 {
	return a.answered
}
