package gameserver

import (
	"time"

	"github.com/benruijl/walledin/internal/replication"
)

// Diagnostics is an immutable view of the server published after every
// tick for readers outside the tick goroutine.
type Diagnostics struct {
	Tick        uint64           `json:"tick"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Players     int              `json:"players"`
	MaxPlayers  int              `json:"maxPlayers"`
	Entities    int              `json:"entities"`
	Connections []ConnectionInfo `json:"connections"`
	LastFlush   FlushInfo        `json:"lastFlush"`
}

type ConnectionInfo struct {
	Addr      string    `json:"addr"`
	Entity    string    `json:"entity"`
	State     string    `json:"state"`
	LastHeard time.Time `json:"lastHeard"`
	JoinedAt  time.Time `json:"joinedAt"`
}

type FlushInfo struct {
	Peers        int `json:"peers"`
	Bootstraps   int `json:"bootstraps"`
	Entities     int `json:"entities"`
	Datagrams    int `json:"datagrams"`
	Bytes        int `json:"bytes"`
	SendFailures int `json:"sendFailures"`
	Purged       int `json:"purged"`
}

// Diagnostics is safe to call from any goroutine.
func (s *Server) Diagnostics() Diagnostics {
	return *s.diagnostics.Load()
}

func (s *Server) publishDiagnostics(now time.Time, report replication.Report) {
	d := &Diagnostics{
		Tick:        s.tick,
		UpdatedAt:   now,
		Players:     len(s.order),
		MaxPlayers:  s.cfg.MaxPlayers,
		Entities:    s.world.Store().Len(),
		Connections: make([]ConnectionInfo, 0, len(s.order)),
		LastFlush: FlushInfo{
			Peers:        report.Peers,
			Bootstraps:   report.Bootstraps,
			Entities:     report.Steady,
			Datagrams:    report.Datagrams,
			Bytes:        report.Bytes,
			SendFailures: report.SendFailures,
			Purged:       len(report.Purged),
		},
	}
	for _, c := range s.order {
		d.Connections = append(d.Connections, ConnectionInfo{
			Addr:      c.Addr.String(),
			Entity:    c.Entity,
			State:     c.tracker.State().String(),
			LastHeard: c.tracker.LastHeard(),
			JoinedAt:  c.JoinedAt,
		})
	}
	s.diagnostics.Store(d)
}
