package attribute

import "fmt"

// ID is the ordinal of an attribute in the catalogue. Replicated attributes
// are identified on the wire by this value, so entries may only be appended.
type ID uint16

// Kind enumerates the value types an attribute slot may hold.
type Kind uint8

const (
	KindVector Kind = iota + 1
	KindFloat
	KindInt
	KindBool
	KindString
	KindKeySet
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindVector:
		return "vector"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindKeySet:
		return "keyset"
	case KindLocal:
		return "local"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Attribute describes one named slot an entity may hold.
type Attribute struct {
	ID         ID
	Name       string
	Kind       Kind
	Replicated bool
}

func (a Attribute) String() string {
	return a.Name
}

// Key binds an attribute to the Go type of its value so reads and writes are
// checked at compile time.
type Key[V Value] struct {
	attr Attribute
}

// Attribute returns the catalogue entry behind the key.
func (k Key[V]) Attribute() Attribute {
	return k.attr
}

// ID returns the wire ordinal.
func (k Key[V]) ID() ID {
	return k.attr.ID
}

func define[V Value](id ID, name string, replicated bool) Key[V] {
	var zero V
	return Key[V]{attr: Attribute{ID: id, Name: name, Kind: zero.Kind(), Replicated: replicated}}
}

// The catalogue. Order is part of the wire protocol: append only.
var (
	Position    = define[Vector](0, "position", true)
	Velocity    = define[Vector](1, "velocity", true)
	Orientation = define[Float](2, "orientation", true)
	Health      = define[Float](3, "health", true)
	PlayerName  = define[String](4, "playerName", true)
	Score       = define[Int](5, "score", true)
	Width       = define[Float](6, "width", true)
	Height      = define[Float](7, "height", true)
	Visible     = define[Bool](8, "visible", true)
	Actions     = define[KeySet](9, "actions", true)
	Controls    = define[KeySet](10, "controls", false)
	Body        = define[Local](11, "body", false)
	Tiles       = define[Local](12, "tiles", false)
)

var catalog = []Attribute{
	Position.attr,
	Velocity.attr,
	Orientation.attr,
	Health.attr,
	PlayerName.attr,
	Score.attr,
	Width.attr,
	Height.attr,
	Visible.attr,
	Actions.attr,
	Controls.attr,
	Body.attr,
	Tiles.attr,
}

func init() {
	for i, attr := range catalog {
		if int(attr.ID) != i {
			panic(fmt.Sprintf("attribute %s has ordinal %d at catalogue index %d", attr.Name, attr.ID, i))
		}
	}
}

// Lookup resolves an ordinal against the full catalogue.
func Lookup(id ID) (Attribute, bool) {
	if int(id) >= len(catalog) {
		return Attribute{}, false
	}
	return catalog[id], true
}

// LookupReplicated resolves a wire ordinal that may legitimately appear in a
// payload.
func LookupReplicated(id ID) (Attribute, bool) {
	attr, ok := Lookup(id)
	if !ok || !attr.Replicated {
		return Attribute{}, false
	}
	return attr, true
}

// All returns a copy of the catalogue in ordinal order.
func All() []Attribute {
	out := make([]Attribute, len(catalog))
	copy(out, catalog)
	return out
}

// Field pairs an attribute ordinal with a value.
type Field struct {
	ID    ID
	Value Value
}
