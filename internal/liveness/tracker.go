// Package liveness implements the per-connection heartbeat state machine.
package liveness

import "time"

type State uint8

const (
	Alive State = iota
	AwaitingAck
	Dead
)

func (s State) String() string {
	switch s {
	case Alive:
		return "alive"
	case AwaitingAck:
		return "awaiting_ack"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Action tells the caller what Tick decided.
type Action uint8

const (
	None Action = iota
	// Probe means a heartbeat should be sent to the peer now.
	Probe
	// Expire means the peer just died. It is returned exactly once.
	Expire
)

type Config struct {
	// CheckInterval is how long a peer may stay silent before it is probed.
	CheckInterval time.Duration `json:"checkInterval"`
	// WaitTimeout is how long after a probe the peer has to answer.
	WaitTimeout time.Duration `json:"waitTimeout"`
}

func DefaultConfig() Config {
	return Config{
		CheckInterval: 2 * time.Second,
		WaitTimeout:   3 * time.Second,
	}
}

// Tracker is not safe for concurrent use; it belongs to the tick goroutine.
type Tracker struct {
	cfg         Config
	state       State
	lastHeard   time.Time
	probeSentAt time.Time
}

// New starts a tracker in the Alive state as if the peer was heard at now.
func New(cfg Config, now time.Time) *Tracker {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultConfig().WaitTimeout
	}
	return &Tracker{cfg: cfg, state: Alive, lastHeard: now}
}

func (t *Tracker) State() State {
	return t.state
}

func (t *Tracker) LastHeard() time.Time {
	return t.lastHeard
}

// ProbeSentAt is the time of the outstanding probe, zero when none is.
func (t *Tracker) ProbeSentAt() time.Time {
	return t.probeSentAt
}

// Heard records traffic from the peer. Any datagram counts, not only an ack.
// A dead tracker stays dead.
func (t *Tracker) Heard(now time.Time) {
	if t.state == Dead {
		return
	}
	if now.After(t.lastHeard) {
		t.lastHeard = now
	}
	t.state = Alive
	t.probeSentAt = time.Time{}
}

// Tick advances the state machine. It must be called every tick whether or
// not traffic arrived.
func (t *Tracker) Tick(now time.Time) Action {
	switch t.state {
	case Alive:
		if now.Sub(t.lastHeard) > t.cfg.CheckInterval {
			t.state = AwaitingAck
			t.probeSentAt = now
			return Probe
		}
	case AwaitingAck:
		if now.Sub(t.probeSentAt) >= t.cfg.WaitTimeout {
			t.state = Dead
			return Expire
		}
	}
	return None
}
