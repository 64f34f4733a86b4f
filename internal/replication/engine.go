// Package replication turns one tick's entity mutations into GAMESTATE
// datagrams for every connected peer.
package replication

import (
	"context"
	"net/netip"

	"github.com/benruijl/walledin/internal/entity"
	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
	"github.com/benruijl/walledin/logging"
	"github.com/benruijl/walledin/logging/network"
)

// DefaultDatagramBudget keeps GAMESTATE datagrams under a typical path MTU.
const DefaultDatagramBudget = 1200

const entitiesReplicatedMetricKey = "replication_entities_total"

type Config struct {
	DatagramBudget int `json:"datagramBudget"`
}

type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Peer is one observer of the world. Bootstrap is set on the tick its login
// was accepted and requests the full state instead of the delta. Resync marks
// a bootstrap re-requested by a peer that was already being streamed to: it
// gets the delta first so removals of this tick still reach it, then the full
// state.
type Peer struct {
	Addr      netip.AddrPort
	Bootstrap bool
	Resync    bool
}

func (p Peer) steady() bool {
	return !p.Bootstrap || p.Resync
}

// Report summarises a flush.
type Report struct {
	Tick         uint64
	Peers        int
	Bootstraps   int
	Steady       int
	Datagrams    int
	Bytes        int
	SendFailures int
	Purged       []string
}

// Engine is not safe for concurrent use; it runs on the tick goroutine.
type Engine struct {
	store  *entity.Store
	sender transport.Sender
	budget int
	deps   Deps
}

func NewEngine(store *entity.Store, sender transport.Sender, cfg Config, deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = telemetry.LoggerFunc(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	budget := cfg.DatagramBudget
	if budget <= 0 {
		budget = DefaultDatagramBudget
	}
	return &Engine{store: store, sender: sender, budget: budget, deps: deps}
}

// Flush runs once per tick after the simulation step and removal marking.
// Every dirty set is read and cleared exactly once no matter how many peers
// there are; the resulting batch is encoded once and sent to each steady
// peer. Bootstrapping peers get a full CREATE of every live entity instead,
// after the delta when they are resyncing.
// Entities marked for removal are purged before Flush returns.
func (e *Engine) Flush(ctx context.Context, tick uint64, peers []Peer) Report {
	report := Report{Tick: tick, Peers: len(peers)}

	steadyPeers := 0
	for _, p := range peers {
		if p.Bootstrap {
			report.Bootstraps++
		}
		if p.steady() {
			steadyPeers++
		}
	}

	steady := e.collect(steadyPeers > 0)
	report.Steady = len(steady)

	if steadyPeers > 0 && len(steady) > 0 {
		datagrams := proto.EncodeGameState(steady, e.budget)
		for _, p := range peers {
			if p.steady() {
				e.send(ctx, tick, p.Addr, datagrams, &report)
			}
		}
		e.deps.Metrics.Add(entitiesReplicatedMetricKey, uint64(len(steady)*steadyPeers))
	}

	if report.Bootstraps > 0 {
		full := e.bootstrap()
		datagrams := proto.EncodeGameState(full, e.budget)
		for _, p := range peers {
			if !p.Bootstrap {
				continue
			}
			e.send(ctx, tick, p.Addr, datagrams, &report)
			e.deps.Metrics.Add(telemetry.Bootstraps, 1)
			network.BootstrapSent(ctx, e.deps.Publisher, tick, logging.ConnectionRef(p.Addr.String()), network.BootstrapSentPayload{
				Entities:  len(full),
				Datagrams: len(datagrams),
			})
		}
	}

	report.Purged = e.store.Purge()
	return report
}

// collect reads and clears every dirty set. Without observers the dirty data
// is discarded and no messages are built.
func (e *Engine) collect(build bool) []proto.EntityMessage {
	var out []proto.EntityMessage
	for _, ent := range e.store.Entities() {
		switch {
		case ent.Removed() && ent.Fresh():
			// Created and removed within the same tick: nobody has seen it.
			ent.TakeDirty()
		case ent.Removed():
			ent.TakeDirty()
			if build {
				out = append(out, proto.EntityMessage{Op: proto.SubRemove, Name: ent.Name()})
			}
		case ent.Fresh():
			ent.TakeDirty()
			if build {
				out = append(out, createMessage(ent))
			}
		default:
			dirty := ent.TakeDirty()
			if build && len(dirty) > 0 {
				out = append(out, proto.EntityMessage{Op: proto.SubUpdate, Name: ent.Name(), Fields: dirty})
			}
		}
	}
	return out
}

func (e *Engine) bootstrap() []proto.EntityMessage {
	live := e.store.Live()
	out := make([]proto.EntityMessage, 0, len(live))
	for _, ent := range live {
		out = append(out, createMessage(ent))
	}
	return out
}

func createMessage(ent *entity.Entity) proto.EntityMessage {
	return proto.EntityMessage{
		Op:     proto.SubCreate,
		Name:   ent.Name(),
		Family: string(ent.Family()),
		Fields: ent.Snapshot(),
	}
}

// send hands every datagram to the transport. A failure is logged and the
// remaining datagrams and peers are still served.
func (e *Engine) send(ctx context.Context, tick uint64, addr netip.AddrPort, datagrams [][]byte, report *Report) {
	for _, d := range datagrams {
		if err := e.sender.Send(addr, d); err != nil {
			report.SendFailures++
			e.deps.Metrics.Add(telemetry.SendFailures, 1)
			e.deps.Logger.Printf("[replication] send to %s failed: %v", addr, err)
			network.SendFailed(ctx, e.deps.Publisher, tick, logging.ConnectionRef(addr.String()), network.SendFailedPayload{
				Bytes: len(d),
				Error: err.Error(),
			})
			continue
		}
		report.Datagrams++
		report.Bytes += len(d)
	}
}
