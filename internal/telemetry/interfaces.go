package telemetry

import (
	"log"
	"sort"
	"sync"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Metrics exposes the counters server components update.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Counter names shared between the game server and the master server.
const (
	DatagramsIn        = "datagrams_in"
	DatagramsOut       = "datagrams_out"
	DatagramsDropped   = "datagrams_dropped"
	BytesOut           = "bytes_out"
	SendFailures       = "send_failures"
	DecodeFaults       = "decode_faults"
	ProbesSent         = "probes_sent"
	ConnectionsExpired = "connections_expired"
	LoginsAccepted     = "logins_accepted"
	LoginsRejected     = "logins_rejected"
	Bootstraps         = "bootstraps"
	TickOverruns       = "tick_overruns"
	ServersRegistered  = "servers_registered"
	ServersEvicted     = "servers_evicted"
	ChallengesIssued   = "challenges_issued"
	ChallengesAccepted = "challenges_accepted"
	ChallengesIgnored  = "challenges_ignored"
	QueriesServed      = "queries_served"
	QueriesLimited     = "queries_limited"
)

// Counters is an in-process Metrics implementation. Values are exposed via
// Snapshot for the diagnostics endpoints.
type Counters struct {
	mu     sync.Mutex
	values map[string]uint64
}

func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.values == nil {
		c.values = make(map[string]uint64)
	}
	c.values[key] += delta
	c.mu.Unlock()
}

func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.values == nil {
		c.values = make(map[string]uint64)
	}
	c.values[key] = value
	c.mu.Unlock()
}

func (c *Counters) Get(key string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Keys lists the recorded counter names in sorted order.
func (c *Counters) Keys() []string {
	snap := c.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// NopMetrics discards every update.
func NopMetrics() Metrics {
	return nopMetrics{}
}
