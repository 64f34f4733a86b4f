package proto

import (
	"encoding/binary"
	"errors"
	"math"
)

// Magic numbers open every datagram. The game and master protocols use
// different constants so colocated services never misread each other.
const (
	GameMagic   uint32 = 0x57414C4C // "WALL"
	MasterMagic uint32 = 0x574D5354 // "WMST"
)

// HeaderSize is the magic plus the type discriminant.
const HeaderSize = 5

// MaxStringLen bounds decoded string lengths.
const MaxStringLen = math.MaxUint16

var (
	// ErrForeignMagic marks traffic for another protocol. Callers drop it silently.
	ErrForeignMagic = errors.New("proto: foreign magic")
	// ErrUnknownType marks a message type this build does not understand.
	ErrUnknownType = errors.New("proto: unknown message type")
	// ErrTruncated is returned when a length or field runs past the datagram.
	ErrTruncated = errors.New("proto: truncated payload")
	// ErrTrailingBytes is returned when a complete message is followed by junk.
	ErrTrailingBytes = errors.New("proto: trailing bytes")
	// ErrStringTooLong is returned for string lengths above MaxStringLen.
	ErrStringTooLong = errors.New("proto: string too long")
	// ErrUnknownAttribute marks an attribute ordinal outside the replicated catalogue.
	ErrUnknownAttribute = errors.New("proto: unknown attribute")
	// ErrUnknownSubType marks a GAMESTATE sub-message type this build does not understand.
	ErrUnknownSubType = errors.New("proto: unknown sub-message type")
	// ErrMalformedValue marks an attribute payload that does not match its kind.
	ErrMalformedValue = errors.New("proto: malformed attribute value")
	// ErrBadAddress marks an unparsable server address in a SERVERS reply.
	ErrBadAddress = errors.New("proto: bad server address")
)

// Magic returns the protocol magic of a datagram, if it is long enough to
// carry one.
func Magic(data []byte) (uint32, bool) {
	if len(data) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(data), true
}

type writer struct {
	buf []byte
}

func newWriter(magic uint32, typ uint8) *writer {
	w := &writer{buf: make([]byte, 0, 64)}
	w.u32(magic)
	w.u8(typ)
	return w
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *writer) i32(v int32) {
	w.u32(uint32(v))
}

func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

// str writes a length-prefixed string, clamped to MaxStringLen bytes.
func (w *writer) str(s string) {
	if len(s) > MaxStringLen {
		s = s[:MaxStringLen]
	}
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// reserve32 appends a placeholder length and returns its offset.
func (w *writer) reserve32() int {
	off := len(w.buf)
	w.u32(0)
	return off
}

func (w *writer) fill32(off int) {
	binary.BigEndian.PutUint32(w.buf[off:], uint32(len(w.buf)-off-4))
}

func (w *writer) reserve16() int {
	off := len(w.buf)
	w.u16(0)
	return off
}

func (w *writer) fill16(off int) {
	binary.BigEndian.PutUint16(w.buf[off:], uint16(len(w.buf)-off-2))
}

// reader walks a payload with a sticky error: after the first failure every
// read returns zero values.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.err = ErrTruncated
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) str() string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	if n > MaxStringLen {
		r.err = ErrStringTooLong
		return ""
	}
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// finish reports the sticky error, or ErrTrailingBytes if input remains.
func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.remaining() != 0 {
		return ErrTrailingBytes
	}
	return nil
}

func readHeader(data []byte, magic uint32) (uint8, *reader, error) {
	got, ok := Magic(data)
	if !ok || got != magic {
		return 0, nil, ErrForeignMagic
	}
	if len(data) < HeaderSize {
		return 0, nil, ErrTruncated
	}
	return data[4], newReader(data[HeaderSize:]), nil
}
