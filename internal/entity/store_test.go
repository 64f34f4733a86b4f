package entity

import (
	"errors"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	a, err := s.Create("a", FamilyPlayer)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := s.Create("a", FamilyBullet); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := s.Create("b", FamilyBullet); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if !a.Fresh() {
		t.Fatalf("expected new entity to be fresh")
	}

	if purged := s.Purge(); len(purged) != 0 {
		t.Fatalf("nothing should be purged yet: %v", purged)
	}
	if a.Fresh() {
		t.Fatalf("purge should clear fresh flag")
	}

	if !s.MarkRemoved("b") {
		t.Fatalf("expected b to be marked")
	}
	if s.MarkRemoved("b") {
		t.Fatalf("second mark should be a no-op")
	}
	if _, ok := s.Get("b"); ok {
		t.Fatalf("marked entity should not be returned by Get")
	}
	if got := len(s.Entities()); got != 2 {
		t.Fatalf("marked entity should remain until purge, have %d", got)
	}
	if got := s.Len(); got != 1 {
		t.Fatalf("expected 1 live entity, got %d", got)
	}

	purged := s.Purge()
	if len(purged) != 1 || purged[0] != "b" {
		t.Fatalf("unexpected purge result %v", purged)
	}
	if _, err := s.Create("b", FamilyBullet); err != nil {
		t.Fatalf("name should be reusable after purge: %v", err)
	}
}

func TestStorePreservesCreationOrder(t *testing.T) {
	s := NewStore()
	for _, name := range []string{"c", "a", "b"} {
		if _, err := s.Create(name, FamilyItem); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	s.Delete("a")
	live := s.Live()
	if len(live) != 2 || live[0].Name() != "c" || live[1].Name() != "b" {
		t.Fatalf("unexpected order after delete")
	}
}
