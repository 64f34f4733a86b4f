package world

import (
	"errors"
	"testing"
	"time"

	"github.com/benruijl/walledin/internal/attribute"
	"github.com/benruijl/walledin/internal/entity"
)

func TestSpawnPlayerInsideBounds(t *testing.T) {
	w := New(Config{Width: 200, Height: 100, PlayerSize: 10})
	for i := 0; i < 50; i++ {
		p, err := w.SpawnPlayer("bot")
		if err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
		pos, ok := entity.Get(p, attribute.Position)
		if !ok || !w.Bounds().Inset(5).Contains(pos) {
			t.Fatalf("spawn %d at %+v outside bounds", i, pos)
		}
	}
	if got := len(w.Players()); got != 50 {
		t.Fatalf("expected 50 players, got %d", got)
	}
}

func TestSpawnPlayerNames(t *testing.T) {
	w := New(DefaultConfig())
	first, _ := w.SpawnPlayer("  alice ")
	second, _ := w.SpawnPlayer("alice")
	third, _ := w.SpawnPlayer("alice")
	if first.Name() != "alice" || second.Name() != "alice(2)" || third.Name() != "alice(3)" {
		t.Fatalf("unexpected names %q %q %q", first.Name(), second.Name(), third.Name())
	}
	name, _ := entity.Get(second, attribute.PlayerName)
	if name != "alice(2)" {
		t.Fatalf("player name attribute %q", name)
	}

	w.Remove("alice")
	fourth, _ := w.SpawnPlayer("alice")
	if fourth.Name() != "alice(4)" {
		t.Fatalf("name reused before purge: %q", fourth.Name())
	}
	w.Store().Purge()
	fifth, _ := w.SpawnPlayer("alice")
	if fifth.Name() != "alice" {
		t.Fatalf("expected purged name to be reusable, got %q", fifth.Name())
	}

	if _, err := w.SpawnPlayer("   "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestSpawnPlayerAtRejectsOutOfBounds(t *testing.T) {
	w := New(Config{Width: 10, Height: 10})
	if _, err := w.SpawnPlayerAt("x", attribute.Vector{X: 11, Y: 5}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if w.Store().Len() != 0 {
		t.Fatalf("rejected spawn left an entity behind")
	}
}

func TestSpawnFamilyNames(t *testing.T) {
	w := New(DefaultConfig())
	a, _ := w.Spawn(entity.FamilyBullet)
	b, _ := w.Spawn(entity.FamilyBullet)
	c, _ := w.Spawn(entity.FamilyItem)
	if a.Name() != "bullet-1" || b.Name() != "bullet-2" || c.Name() != "item-1" {
		t.Fatalf("unexpected names %q %q %q", a.Name(), b.Name(), c.Name())
	}
	if b.Family() != entity.FamilyBullet {
		t.Fatalf("unexpected family %q", b.Family())
	}
}

func TestDriftMovesByControls(t *testing.T) {
	w := New(Config{Width: 1000, Height: 1000, PlayerSize: 10, PlayerSpeed: 100})
	p, err := w.SpawnPlayerAt("mover", attribute.Vector{X: 500, Y: 500})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	idle, _ := w.SpawnPlayerAt("idle", attribute.Vector{X: 100, Y: 100})
	p.TakeDirty()
	idle.TakeDirty()

	entity.Set(p, attribute.Controls, attribute.NewKeySet(KeyRight))
	Drift{}.Advance(w, time.Second)

	pos, _ := entity.Get(p, attribute.Position)
	if pos.X != 600 || pos.Y != 500 {
		t.Fatalf("unexpected position %+v", pos)
	}
	actions, _ := entity.Get(p, attribute.Actions)
	if !actions.Contains(KeyRight) {
		t.Fatalf("actions not mirrored: %v", actions)
	}
	if idle.DirtyLen() != 0 {
		t.Fatalf("idle player marked dirty: %d", idle.DirtyLen())
	}

	entity.Set(p, attribute.Controls, attribute.NewKeySet(KeyLeft))
	Drift{}.Advance(w, time.Hour)
	pos, _ = entity.Get(p, attribute.Position)
	if pos.X != 5 {
		t.Fatalf("expected clamp to left edge, got %+v", pos)
	}
}
