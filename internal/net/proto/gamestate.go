package proto

import (
	"fmt"

	"github.com/benruijl/walledin/internal/attribute"
)

// SubType discriminates the per-entity sub-messages of a GAMESTATE batch.
type SubType uint8

const (
	SubCreate SubType = 1
	SubUpdate SubType = 2
	SubRemove SubType = 3
)

func (t SubType) String() string {
	switch t {
	case SubCreate:
		return "CREATE"
	case SubUpdate:
		return "UPDATE"
	case SubRemove:
		return "REMOVE"
	default:
		return fmt.Sprintf("SubType(%d)", uint8(t))
	}
}

// EntityMessage is one CREATE, UPDATE or REMOVE sub-message. Family is only
// carried by CREATE; Fields only by CREATE and UPDATE.
type EntityMessage struct {
	Op     SubType
	Name   string
	Family string
	Fields []attribute.Field
}

// GameState is a batch of entity sub-messages. Faults lists the sub-messages
// or attributes that were skipped while decoding; it is never encoded.
type GameState struct {
	Entities []EntityMessage
	Faults   []error
}

const gameStateHeader = HeaderSize + 4

func (m GameState) encode(w *writer) {
	w.u32(uint32(len(m.Entities)))
	for _, e := range m.Entities {
		appendEntity(w, e)
	}
}

func appendEntity(w *writer, e EntityMessage) {
	w.u8(uint8(e.Op))
	lenOff := w.reserve32()
	w.str(e.Name)
	switch e.Op {
	case SubCreate:
		w.str(e.Family)
		appendFields(w, e.Fields)
	case SubUpdate:
		appendFields(w, e.Fields)
	}
	w.fill32(lenOff)
}

// EncodeGameState renders a batch into one or more self-contained GAMESTATE
// datagrams, starting a new datagram whenever adding the next sub-message
// would exceed budget bytes. A sub-message larger than the budget travels
// alone. An empty batch yields no datagrams.
func EncodeGameState(entities []EntityMessage, budget int) [][]byte {
	if len(entities) == 0 {
		return nil
	}
	var (
		out   [][]byte
		cur   *writer
		count uint32
	)
	flush := func() {
		if cur == nil {
			return
		}
		putCount(cur.buf, count)
		out = append(out, cur.buf)
		cur, count = nil, 0
	}
	sub := &writer{}
	for _, e := range entities {
		sub.buf = sub.buf[:0]
		appendEntity(sub, e)
		if cur != nil && budget > 0 && len(cur.buf)+len(sub.buf) > budget {
			flush()
		}
		if cur == nil {
			cur = newWriter(GameMagic, uint8(TypeGameState))
			cur.u32(0)
		}
		cur.buf = append(cur.buf, sub.buf...)
		count++
	}
	flush()
	return out
}

func putCount(buf []byte, count uint32) {
	buf[HeaderSize] = byte(count >> 24)
	buf[HeaderSize+1] = byte(count >> 16)
	buf[HeaderSize+2] = byte(count >> 8)
	buf[HeaderSize+3] = byte(count)
}

// decodeGameState reads the batch. Unknown sub-types and bad attributes are
// skipped by length; a length running past the datagram aborts the batch.
func decodeGameState(r *reader) (GameMessage, error) {
	n := r.u32()
	if r.err != nil {
		return nil, fmt.Errorf("decode %s: %w", TypeGameState, r.err)
	}
	msg := GameState{Entities: make([]EntityMessage, 0, min(int(n), r.remaining()/5))}
	for i := uint32(0); i < n; i++ {
		op := SubType(r.u8())
		body := r.take(int(r.u32()))
		if r.err != nil {
			return msg, fmt.Errorf("decode %s sub-message %d: %w", TypeGameState, i, r.err)
		}
		e, faults, err := decodeEntity(op, body)
		msg.Faults = append(msg.Faults, faults...)
		if err != nil {
			msg.Faults = append(msg.Faults, fmt.Errorf("sub-message %d: %w", i, err))
			continue
		}
		msg.Entities = append(msg.Entities, e)
	}
	if err := r.finish(); err != nil {
		return msg, fmt.Errorf("decode %s: %w", TypeGameState, err)
	}
	return msg, nil
}

func decodeEntity(op SubType, body []byte) (EntityMessage, []error, error) {
	r := newReader(body)
	e := EntityMessage{Op: op}
	var faults []error
	switch op {
	case SubCreate:
		e.Name = r.str()
		e.Family = r.str()
		e.Fields, faults = readFields(r)
	case SubUpdate:
		e.Name = r.str()
		e.Fields, faults = readFields(r)
	case SubRemove:
		e.Name = r.str()
	default:
		return e, nil, fmt.Errorf("%w: %d", ErrUnknownSubType, op)
	}
	if err := r.finish(); err != nil {
		return e, faults, fmt.Errorf("%s %q: %w", op, e.Name, err)
	}
	return e, faults, nil
}
