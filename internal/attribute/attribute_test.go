package attribute

import "testing"

func TestCatalogueOrdinals(t *testing.T) {
	for i, attr := range All() {
		if int(attr.ID) != i {
			t.Fatalf("attribute %s has ordinal %d at index %d", attr.Name, attr.ID, i)
		}
		got, ok := Lookup(attr.ID)
		if !ok || got != attr {
			t.Fatalf("lookup of %d returned %+v", attr.ID, got)
		}
		if _, ok := LookupReplicated(attr.ID); ok != attr.Replicated {
			t.Fatalf("replicated lookup of %s = %v", attr.Name, ok)
		}
		if attr.Kind == KindLocal && attr.Replicated {
			t.Fatalf("local attribute %s marked replicated", attr.Name)
		}
	}
	if _, ok := Lookup(ID(len(All()))); ok {
		t.Fatalf("lookup past the end succeeded")
	}
}

func TestValueEquality(t *testing.T) {
	cases := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"vector", Vector{X: 1, Y: 2}, Vector{X: 1, Y: 2}, true},
		{"vector differs", Vector{X: 1, Y: 2}, Vector{X: 2, Y: 1}, false},
		{"float vs int", Float(1), Int(1), false},
		{"string", String("a"), String("a"), true},
		{"empty key sets", KeySet{}, KeySet(nil), true},
		{"key sets", NewKeySet(3, 1, 3), KeySet{1, 3}, true},
		{"local", Local{Ref: 1}, Local{Ref: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.equal {
				t.Fatalf("Equal = %v, want %v", got, tc.equal)
			}
		})
	}
}

func TestKeyKinds(t *testing.T) {
	if Position.Attribute().Kind != KindVector {
		t.Fatalf("position kind %s", Position.Attribute().Kind)
	}
	if Controls.Attribute().Replicated {
		t.Fatalf("controls must stay local to the server")
	}
	if !Actions.Attribute().Replicated || Actions.ID() != 9 {
		t.Fatalf("unexpected actions attribute %+v", Actions.Attribute())
	}
}
