// Package world owns the authoritative entity store and the entity factory.
package world

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/benruijl/walledin/internal/attribute"
	"github.com/benruijl/walledin/internal/entity"
)

var (
	// ErrOutOfBounds is returned when a spawn position falls outside the map.
	ErrOutOfBounds = errors.New("world: spawn position out of bounds")
	// ErrEmptyName is returned for a player name that is blank after trimming.
	ErrEmptyName = errors.New("world: empty player name")
)

// World is not safe for concurrent use; the game server touches it only
// from the tick goroutine.
type World struct {
	cfg     Config
	store   *entity.Store
	bounds  Bounds
	rng     *rand.Rand
	serials map[entity.Family]uint64
}

func New(cfg Config) *World {
	cfg = cfg.Normalized()
	return &World{
		cfg:     cfg,
		store:   entity.NewStore(),
		bounds:  BoundsFor(cfg),
		rng:     rand.New(rand.NewSource(seedFor(cfg.Seed))),
		serials: make(map[entity.Family]uint64),
	}
}

func seedFor(seed string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return int64(h.Sum64())
}

func (w *World) Config() Config {
	return w.cfg
}

func (w *World) Store() *entity.Store {
	return w.store
}

func (w *World) Bounds() Bounds {
	return w.bounds
}

// Players returns the live player entities in creation order.
func (w *World) Players() []*entity.Entity {
	var out []*entity.Entity
	for _, e := range w.store.Live() {
		if e.Family() == entity.FamilyPlayer {
			out = append(out, e)
		}
	}
	return out
}

// SpawnPlayer creates a player entity named after requested. A taken name
// gets a numeric suffix.
func (w *World) SpawnPlayer(requested string) (*entity.Entity, error) {
	base := strings.TrimSpace(requested)
	if base == "" {
		return nil, ErrEmptyName
	}
	half := w.cfg.PlayerSize / 2
	pos := w.bounds.Inset(half).randomPoint(w.rng)
	return w.SpawnPlayerAt(base, pos)
}

// SpawnPlayerAt is SpawnPlayer with a fixed position.
func (w *World) SpawnPlayerAt(requested string, pos attribute.Vector) (*entity.Entity, error) {
	if !w.bounds.Contains(pos) {
		return nil, fmt.Errorf("%w: %+v", ErrOutOfBounds, pos)
	}
	name := w.uniqueName(requested)
	e, err := w.store.Create(name, entity.FamilyPlayer)
	if err != nil {
		return nil, err
	}
	entity.Set(e, attribute.PlayerName, attribute.String(name))
	entity.Set(e, attribute.Position, pos)
	entity.Set(e, attribute.Velocity, attribute.Vector{})
	entity.Set(e, attribute.Health, attribute.Float(DefaultHealth))
	entity.Set(e, attribute.Width, attribute.Float(w.cfg.PlayerSize))
	entity.Set(e, attribute.Height, attribute.Float(w.cfg.PlayerSize))
	entity.Set(e, attribute.Visible, attribute.Bool(true))
	entity.Set(e, attribute.Score, attribute.Int(0))
	entity.Set(e, attribute.Actions, attribute.KeySet{})
	entity.Set(e, attribute.Controls, attribute.KeySet{})
	return e, nil
}

// Spawn creates an entity of the given family with a generated name.
func (w *World) Spawn(family entity.Family) (*entity.Entity, error) {
	for {
		w.serials[family]++
		name := fmt.Sprintf("%s-%d", family, w.serials[family])
		if w.store.Exists(name) {
			continue
		}
		return w.store.Create(name, family)
	}
}

// Remove schedules an entity for removal at the end of the tick.
func (w *World) Remove(name string) bool {
	return w.store.MarkRemoved(name)
}

func (w *World) uniqueName(base string) string {
	if !w.store.Exists(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := entity.Candidate(base, i)
		if !w.store.Exists(candidate) {
			return candidate
		}
	}
}
