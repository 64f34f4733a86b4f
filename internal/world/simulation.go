package world

import (
	"math"
	"time"

	"github.com/benruijl/walledin/internal/attribute"
	"github.com/benruijl/walledin/internal/entity"
)

// Input codes carried in INPUT messages.
const (
	KeyUp uint16 = iota + 1
	KeyDown
	KeyLeft
	KeyRight
	KeyFire
)

// Simulation is the gameplay step run once per tick before replication. It
// may create entities, mark them removed and mutate attributes.
type Simulation interface {
	Advance(w *World, dt time.Duration)
}

type SimulationFunc func(w *World, dt time.Duration)

func (f SimulationFunc) Advance(w *World, dt time.Duration) {
	f(w, dt)
}

// Drift moves every player by the keys it holds and mirrors the held keys
// into the replicated Actions attribute. It stands in for real gameplay.
type Drift struct{}

func (Drift) Advance(w *World, dt time.Duration) {
	seconds := float32(dt.Seconds())
	speed := w.cfg.PlayerSpeed
	area := w.bounds.Inset(w.cfg.PlayerSize / 2)
	for _, p := range w.Players() {
		keys, _ := entity.Get(p, attribute.Controls)
		intent := intentFor(keys)
		velocity := intent.Scale(speed)
		entity.Set(p, attribute.Velocity, velocity)
		entity.Set(p, attribute.Actions, keys)
		if velocity == (attribute.Vector{}) {
			continue
		}
		pos, _ := entity.Get(p, attribute.Position)
		entity.Set(p, attribute.Position, area.Clamp(pos.Add(velocity.Scale(seconds))))
		entity.Set(p, attribute.Orientation, attribute.Float(math.Atan2(float64(velocity.Y), float64(velocity.X))))
	}
}

func intentFor(keys attribute.KeySet) attribute.Vector {
	var v attribute.Vector
	if keys.Contains(KeyUp) {
		v.Y--
	}
	if keys.Contains(KeyDown) {
		v.Y++
	}
	if keys.Contains(KeyLeft) {
		v.X--
	}
	if keys.Contains(KeyRight) {
		v.X++
	}
	length := float32(math.Hypot(float64(v.X), float64(v.Y)))
	if length == 0 {
		return attribute.Vector{}
	}
	return v.Scale(1 / length)
}
