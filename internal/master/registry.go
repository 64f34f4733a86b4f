package master

import (
	"errors"
	"net/netip"
	"sort"
	"time"

	"github.com/benruijl/walledin/internal/net/proto"
)

// ErrRegistryFull is returned by Notify when a new address would exceed the
// configured capacity.
var ErrRegistryFull = errors.New("master: registry full")

// Text fields of an advertisement are clamped so a SERVERS reply listing a
// full registry stays within one datagram.
const (
	MaxNameLen = 64
	MaxModeLen = 32
)

// Entry is one advertised game server. Source is where its datagrams come
// from and where challenges go; Addr is what clients are told to connect to.
// Both share the source IP, only the port may differ.
type Entry struct {
	Addr       netip.AddrPort `json:"addr"`
	Source     netip.AddrPort `json:"source"`
	Name       string         `json:"name"`
	Players    int32          `json:"players"`
	MaxPlayers int32          `json:"maxPlayers"`
	Mode       string         `json:"mode"`
	FirstSeen  time.Time      `json:"firstSeen"`
	LastSeen   time.Time      `json:"lastSeen"`
}

func (e Entry) Info() proto.ServerInfo {
	return proto.ServerInfo{
		Addr:       e.Addr,
		Name:       e.Name,
		Players:    e.Players,
		MaxPlayers: e.MaxPlayers,
		Mode:       e.Mode,
	}
}

// Registry is the table of live servers keyed by source address. It is owned
// by the master's tick goroutine and not safe for concurrent use.
type Registry struct {
	entries  map[netip.AddrPort]*Entry
	timeout  time.Duration
	capacity int
}

func NewRegistry(timeout time.Duration, capacity int) *Registry {
	return &Registry{
		entries:  make(map[netip.AddrPort]*Entry),
		timeout:  timeout,
		capacity: capacity,
	}
}

// Notify records an advertisement sent from src. A new source is registered
// with LastSeen set to now; a known one only has its details updated, its
// eviction clock is left alone so replayed notifications cannot keep a dead
// entry alive. A zero advertised port means the source port.
func (r *Registry) Notify(src netip.AddrPort, n proto.ServerNotification, now time.Time) (created bool, err error) {
	addr := advertised(src, n.Port)
	if e, ok := r.entries[src]; ok {
		e.Addr = addr
		e.Name = clamp(n.Name, MaxNameLen)
		e.Players = n.Players
		e.MaxPlayers = n.MaxPlayers
		e.Mode = clamp(n.Mode, MaxModeLen)
		return false, nil
	}
	if r.capacity > 0 && len(r.entries) >= r.capacity {
		return false, ErrRegistryFull
	}
	r.entries[src] = &Entry{
		Addr:       addr,
		Source:     src,
		Name:       clamp(n.Name, MaxNameLen),
		Players:    n.Players,
		MaxPlayers: n.MaxPlayers,
		Mode:       clamp(n.Mode, MaxModeLen),
		FirstSeen:  now,
		LastSeen:   now,
	}
	return true, nil
}

// Refresh moves LastSeen of a registered source forward. Only verified
// challenge responses may call it.
func (r *Registry) Refresh(src netip.AddrPort, now time.Time) bool {
	e, ok := r.entries[src]
	if !ok {
		return false
	}
	if now.After(e.LastSeen) {
		e.LastSeen = now
	}
	return true
}

// Sweep evicts every entry whose last-seen age exceeds the timeout.
func (r *Registry) Sweep(now time.Time) []Entry {
	var evicted []Entry
	for src, e := range r.entries {
		if now.Sub(e.LastSeen) > r.timeout {
			evicted = append(evicted, *e)
			delete(r.entries, src)
		}
	}
	sortEntries(evicted)
	return evicted
}

func (r *Registry) Get(src netip.AddrPort) (Entry, bool) {
	e, ok := r.entries[src]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (r *Registry) Contains(src netip.AddrPort) bool {
	_, ok := r.entries[src]
	return ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// List returns every entry ordered by advertised address.
func (r *Registry) List() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Addr.Compare(entries[j].Addr); c != 0 {
			return c < 0
		}
		return entries[i].Source.Compare(entries[j].Source) < 0
	})
}

func advertised(src netip.AddrPort, port uint16) netip.AddrPort {
	if port == 0 {
		return src
	}
	return netip.AddrPortFrom(src.Addr(), port)
}

func clamp(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
