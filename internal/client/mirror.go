// Package client is the game client's network side: a locked mirror of the
// server's entities and the agent that keeps it up to date.
package client

import (
	"sync"

	"github.com/benruijl/walledin/internal/attribute"
	"github.com/benruijl/walledin/internal/entity"
	"github.com/benruijl/walledin/internal/net/proto"
)

// EntityView is a copy of one mirrored entity, safe to keep after the lock
// is released.
type EntityView struct {
	Name   string
	Family entity.Family
	Fields []attribute.Field
}

// Field returns the value stored for id.
func (v EntityView) Field(id attribute.ID) (attribute.Value, bool) {
	for _, f := range v.Fields {
		if f.ID == id {
			return f.Value, true
		}
	}
	return nil, false
}

// ApplyStats counts what one batch did to the mirror.
type ApplyStats struct {
	Created int
	Updated int
	Removed int
	// Ignored counts updates and removals for entities the mirror never saw,
	// usually because their CREATE was lost.
	Ignored int
}

// Mirror is the client's shadow copy of the world. The I/O activity applies
// whole batches under the write lock so readers never observe a half
// applied batch.
type Mirror struct {
	mu      sync.RWMutex
	store   *entity.Store
	batches uint64
}

func NewMirror() *Mirror {
	return &Mirror{store: entity.NewStore()}
}

func (m *Mirror) Apply(batch proto.GameState) ApplyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats ApplyStats
	for _, msg := range batch.Entities {
		switch msg.Op {
		case proto.SubCreate:
			// A repeated CREATE, such as a re-sent bootstrap, replaces the entity.
			m.store.Delete(msg.Name)
			e, err := m.store.Create(msg.Name, entity.Family(msg.Family))
			if err != nil {
				stats.Ignored++
				continue
			}
			e.Load(msg.Fields)
			stats.Created++
		case proto.SubUpdate:
			e, ok := m.store.Get(msg.Name)
			if !ok {
				stats.Ignored++
				continue
			}
			e.Load(msg.Fields)
			stats.Updated++
		case proto.SubRemove:
			if m.store.Delete(msg.Name) {
				stats.Removed++
			} else {
				stats.Ignored++
			}
		}
	}
	m.batches++
	return stats
}

// Batches counts applied batches.
func (m *Mirror) Batches() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batches
}

func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Len()
}

func (m *Mirror) Lookup(name string) (EntityView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store.Get(name)
	if !ok {
		return EntityView{}, false
	}
	return view(e), true
}

// Snapshot copies every mirrored entity in creation order.
func (m *Mirror) Snapshot() []EntityView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	live := m.store.Live()
	out := make([]EntityView, 0, len(live))
	for _, e := range live {
		out = append(out, view(e))
	}
	return out
}

func view(e *entity.Entity) EntityView {
	return EntityView{Name: e.Name(), Family: e.Family(), Fields: e.Snapshot()}
}
