package world

import (
	"math/rand"

	"github.com/benruijl/walledin/internal/attribute"
)

// Bounds is the axis-aligned playable area supplied by the map.
type Bounds struct {
	Min attribute.Vector
	Max attribute.Vector
}

func BoundsFor(cfg Config) Bounds {
	cfg = cfg.Normalized()
	return Bounds{Max: attribute.Vector{X: cfg.Width, Y: cfg.Height}}
}

// Contains reports whether p lies inside the bounds, edges included.
func (b Bounds) Contains(p attribute.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Inset shrinks the bounds by margin on every side.
func (b Bounds) Inset(margin float32) Bounds {
	return Bounds{
		Min: attribute.Vector{X: b.Min.X + margin, Y: b.Min.Y + margin},
		Max: attribute.Vector{X: b.Max.X - margin, Y: b.Max.Y - margin},
	}
}

// Clamp moves p to the nearest point inside the bounds.
func (b Bounds) Clamp(p attribute.Vector) attribute.Vector {
	return attribute.Vector{
		X: Clamp(p.X, b.Min.X, b.Max.X),
		Y: Clamp(p.Y, b.Min.Y, b.Max.Y),
	}
}

func (b Bounds) randomPoint(rng *rand.Rand) attribute.Vector {
	return attribute.Vector{
		X: b.Min.X + rng.Float32()*(b.Max.X-b.Min.X),
		Y: b.Min.Y + rng.Float32()*(b.Max.Y-b.Min.Y),
	}
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float32) float32 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
