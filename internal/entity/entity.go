package entity

import (
	"sort"
	"sync"

	"github.com/benruijl/walledin/internal/attribute"
)

// Family tags what kind of game object an entity is so a client can build the
// matching local representation without running gameplay code.
type Family string

const (
	FamilyPlayer     Family = "player"
	FamilyBullet     Family = "bullet"
	FamilyItem       Family = "item"
	FamilyBackground Family = "background"
	FamilyForeground Family = "foreground"
)

// Entity is a named bag of attribute values with dirty tracking. The mutex
// makes TakeDirty indivisible with respect to concurrent Set calls.
type Entity struct {
	name   string
	family Family

	mu     sync.Mutex
	values map[attribute.ID]attribute.Value
	dirty  map[attribute.ID]struct{}

	fresh   bool
	removed bool
}

// New constructs an entity outside of any store.
func New(name string, family Family) *Entity {
	return &Entity{
		name:   name,
		family: family,
		values: make(map[attribute.ID]attribute.Value),
		dirty:  make(map[attribute.ID]struct{}),
	}
}

func (e *Entity) Name() string {
	return e.name
}

func (e *Entity) Family() Family {
	return e.family
}

// Removed reports whether the entity is marked for removal this tick.
func (e *Entity) Removed() bool {
	return e.removed
}

// Fresh reports whether the entity was created during the current tick.
func (e *Entity) Fresh() bool {
	return e.fresh
}

// Set stores v under key. It returns true when the stored value changed.
// Replicated attributes are marked dirty only on an actual change.
func Set[V attribute.Value](e *Entity, key attribute.Key[V], v V) bool {
	return e.set(key.Attribute(), v)
}

// Get reads the value stored under key.
func Get[V attribute.Value](e *Entity, key attribute.Key[V]) (V, bool) {
	e.mu.Lock()
	raw, ok := e.values[key.ID()]
	e.mu.Unlock()
	if !ok {
		var zero V
		return zero, false
	}
	v, ok := raw.(V)
	return v, ok
}

func (e *Entity) set(attr attribute.Attribute, v attribute.Value) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.values[attr.ID]; ok && old.Equal(v) {
		return false
	}
	e.values[attr.ID] = v
	if attr.Replicated {
		e.dirty[attr.ID] = struct{}{}
	}
	return true
}

// Has reports whether a value is stored for id.
func (e *Entity) Has(id attribute.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.values[id]
	return ok
}

// Value returns the raw stored value for id.
func (e *Entity) Value(id attribute.ID) (attribute.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.values[id]
	return v, ok
}

// TakeDirty returns the replicated attributes changed since the previous call,
// with their current values, and clears the dirty set.
func (e *Entity) TakeDirty() []attribute.Field {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.dirty) == 0 {
		return nil
	}
	fields := make([]attribute.Field, 0, len(e.dirty))
	for id := range e.dirty {
		fields = append(fields, attribute.Field{ID: id, Value: e.values[id]})
	}
	clear(e.dirty)
	sortFields(fields)
	return fields
}

// DirtyLen reports the size of the pending dirty set without clearing it.
func (e *Entity) DirtyLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.dirty)
}

// Snapshot returns every replicated attribute currently held. Dirty state is
// left untouched.
func (e *Entity) Snapshot() []attribute.Field {
	e.mu.Lock()
	defer e.mu.Unlock()
	fields := make([]attribute.Field, 0, len(e.values))
	for id, v := range e.values {
		attr, ok := attribute.Lookup(id)
		if !ok || !attr.Replicated {
			continue
		}
		fields = append(fields, attribute.Field{ID: id, Value: v})
	}
	sortFields(fields)
	return fields
}

// Load writes decoded fields without touching the dirty set. Mirrors use it to
// apply replicated state; local-only ordinals are ignored.
func (e *Entity) Load(fields []attribute.Field) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range fields {
		attr, ok := attribute.Lookup(f.ID)
		if !ok || !attr.Replicated || f.Value == nil || f.Value.Kind() != attr.Kind {
			continue
		}
		e.values[f.ID] = f.Value
	}
}

func sortFields(fields []attribute.Field) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
}
