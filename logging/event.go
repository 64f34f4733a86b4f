package logging

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity accepts the lowercase names produced by Severity.String.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return SeverityDebug, nil
	case "info":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", raw)
	}
}

// EntityKind classifies the subject of an event.
type EntityKind string

const (
	EntityKindUnknown    EntityKind = "unknown"
	EntityKindConnection EntityKind = "connection"
	EntityKindEntity     EntityKind = "entity"
	EntityKindServer     EntityKind = "server"
	EntityKindWorld      EntityKind = "world"
)

type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// ConnectionRef identifies a remote peer by its address.
func ConnectionRef(addr string) EntityRef {
	return EntityRef{ID: addr, Kind: EntityKindConnection}
}

// EntityRefFor identifies a replicated entity by name.
func EntityRefFor(name string) EntityRef {
	return EntityRef{ID: name, Kind: EntityKindEntity}
}

// ServerRef identifies a registry entry on the master server.
func ServerRef(addr string) EntityRef {
	return EntityRef{ID: addr, Kind: EntityKindServer}
}

// WorldRef identifies the simulation as a whole.
func WorldRef() EntityRef {
	return EntityRef{Kind: EntityKindWorld}
}

const (
	CategoryNetwork     = "network"
	CategoryLifecycle   = "lifecycle"
	CategorySimulation  = "simulation"
	CategoryRegistry    = "registry"
	CategoryReplication = "replication"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

type fieldPublisher struct {
	next   Publisher
	fields map[string]any
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	p.next.Publish(ctx, withDefaults(event, p.fields))
}

// WithFields decorates every published event with fields it does not
// already carry in Extra.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	return &fieldPublisher{next: p, fields: copyExtra(fields)}
}

func (e Event) WithExtra(key string, value any) Event {
	e.Extra = copyExtra(e.Extra)
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}

// Clone deep-copies the slices and maps of an event so sinks can hold on to it.
func (e Event) Clone() Event {
	cloned := e
	if len(e.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), e.Targets...)
	}
	cloned.Extra = copyExtra(e.Extra)
	return cloned
}

func withDefaults(event Event, fields map[string]any) Event {
	if len(fields) == 0 {
		return event
	}
	event = event.Clone()
	if event.Extra == nil {
		event.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, exists := event.Extra[k]; !exists {
			event.Extra[k] = v
		}
	}
	return event
}

func copyExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}
	copied := make(map[string]any, len(extra))
	for k, v := range extra {
		copied[k] = v
	}
	return copied
}
