package proto

import (
	"fmt"
	"math"

	"github.com/benruijl/walledin/internal/attribute"
)

const maxAttributePayload = math.MaxUint16

// appendFields writes `u16 count | (u16 ordinal | u16 length | payload)*`.
// Fields whose ordinal is not a replicated attribute, or whose value does not
// match the attribute kind, are never written.
func appendFields(w *writer, fields []attribute.Field) {
	countOff := len(w.buf)
	w.u16(0)
	count := 0
	for _, f := range fields {
		if count == math.MaxUint16 {
			break
		}
		attr, ok := attribute.LookupReplicated(f.ID)
		if !ok || f.Value == nil || f.Value.Kind() != attr.Kind {
			continue
		}
		start := len(w.buf)
		w.u16(uint16(f.ID))
		lenOff := w.reserve16()
		appendValue(w, f.Value)
		if len(w.buf)-lenOff-2 > maxAttributePayload {
			w.buf = w.buf[:start]
			continue
		}
		w.fill16(lenOff)
		count++
	}
	w.buf[countOff] = byte(count >> 8)
	w.buf[countOff+1] = byte(count)
}

func appendValue(w *writer, v attribute.Value) {
	switch v := v.(type) {
	case attribute.Vector:
		w.f32(v.X)
		w.f32(v.Y)
	case attribute.Float:
		w.f32(float32(v))
	case attribute.Int:
		w.i32(int32(v))
	case attribute.Bool:
		if v {
			w.u8(1)
		} else {
			w.u8(0)
		}
	case attribute.String:
		w.str(string(v))
	case attribute.KeySet:
		appendKeys(w, v)
	}
}

func appendKeys(w *writer, keys []uint16) {
	if len(keys) > math.MaxUint16 {
		keys = keys[:math.MaxUint16]
	}
	w.u16(uint16(len(keys)))
	for _, k := range keys {
		w.u16(k)
	}
}

func readKeys(r *reader) []uint16 {
	n := int(r.u16())
	if r.err != nil {
		return nil
	}
	keys := make([]uint16, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		keys = append(keys, r.u16())
	}
	if r.err != nil {
		return nil
	}
	return keys
}

// readFields decodes an attribute list. A field with an unknown ordinal or a
// malformed payload is skipped using its length prefix and reported as a
// fault; framing errors abort through the reader's sticky error.
func readFields(r *reader) ([]attribute.Field, []error) {
	n := int(r.u16())
	if r.err != nil {
		return nil, nil
	}
	fields := make([]attribute.Field, 0, n)
	var faults []error
	for i := 0; i < n; i++ {
		id := attribute.ID(r.u16())
		payload := r.take(int(r.u16()))
		if r.err != nil {
			return fields, faults
		}
		attr, ok := attribute.LookupReplicated(id)
		if !ok {
			faults = append(faults, fmt.Errorf("%w: ordinal %d", ErrUnknownAttribute, id))
			continue
		}
		v, err := readValue(payload, attr.Kind)
		if err != nil {
			faults = append(faults, fmt.Errorf("attribute %s: %w", attr.Name, err))
			continue
		}
		fields = append(fields, attribute.Field{ID: id, Value: v})
	}
	return fields, faults
}

func readValue(payload []byte, kind attribute.Kind) (attribute.Value, error) {
	r := newReader(payload)
	var v attribute.Value
	switch kind {
	case attribute.KindVector:
		x := r.f32()
		y := r.f32()
		v = attribute.Vector{X: x, Y: y}
	case attribute.KindFloat:
		v = attribute.Float(r.f32())
	case attribute.KindInt:
		v = attribute.Int(r.i32())
	case attribute.KindBool:
		switch r.u8() {
		case 0:
			v = attribute.Bool(false)
		case 1:
			v = attribute.Bool(true)
		default:
			return nil, ErrMalformedValue
		}
	case attribute.KindString:
		v = attribute.String(r.str())
	case attribute.KindKeySet:
		v = attribute.KeySet(readKeys(r))
	default:
		return nil, ErrMalformedValue
	}
	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return v, nil
}
