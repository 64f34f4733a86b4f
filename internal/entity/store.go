package entity

import "errors"

// ErrDuplicateName is returned when creating an entity whose name is taken.
var ErrDuplicateName = errors.New("entity name already in use")

// Store holds the entities of one world in creation order. It is not safe for
// concurrent use; the server touches it only from the tick goroutine and
// client mirrors wrap it in a lock.
type Store struct {
	byName map[string]*Entity
	order  []*Entity
}

func NewStore() *Store {
	return &Store{byName: make(map[string]*Entity)}
}

// Create adds a new entity flagged as fresh for the current tick.
func (s *Store) Create(name string, family Family) (*Entity, error) {
	if _, exists := s.byName[name]; exists {
		return nil, ErrDuplicateName
	}
	e := New(name, family)
	e.fresh = true
	s.byName[name] = e
	s.order = append(s.order, e)
	return e, nil
}

// Get returns a live entity. Entities marked for removal are not returned.
func (s *Store) Get(name string) (*Entity, bool) {
	e, ok := s.byName[name]
	if !ok || e.removed {
		return nil, false
	}
	return e, true
}

// Exists reports whether name is taken, counting entities awaiting purge.
func (s *Store) Exists(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// MarkRemoved schedules the entity for removal at the end of the tick.
func (s *Store) MarkRemoved(name string) bool {
	e, ok := s.byName[name]
	if !ok || e.removed {
		return false
	}
	e.removed = true
	return true
}

// Delete drops an entity immediately.
func (s *Store) Delete(name string) bool {
	e, ok := s.byName[name]
	if !ok {
		return false
	}
	delete(s.byName, name)
	for i, candidate := range s.order {
		if candidate == e {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Entities returns every entity, including those marked for removal, in
// creation order.
func (s *Store) Entities() []*Entity {
	out := make([]*Entity, len(s.order))
	copy(out, s.order)
	return out
}

// Live returns the entities not marked for removal, in creation order.
func (s *Store) Live() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, e := range s.order {
		if !e.removed {
			out = append(out, e)
		}
	}
	return out
}

// Len counts live entities.
func (s *Store) Len() int {
	n := 0
	for _, e := range s.order {
		if !e.removed {
			n++
		}
	}
	return n
}

// Purge ends the tick: removed entities are dropped and fresh flags cleared.
// It returns the names of the purged entities.
func (s *Store) Purge() []string {
	var purged []string
	kept := s.order[:0]
	for _, e := range s.order {
		if e.removed {
			delete(s.byName, e.name)
			purged = append(purged, e.name)
			continue
		}
		e.fresh = false
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.order); i++ {
		s.order[i] = nil
	}
	s.order = kept
	return purged
}
