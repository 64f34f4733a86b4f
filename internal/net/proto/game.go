package proto

import "fmt"

// GameType discriminates game-protocol messages.
type GameType uint8

const (
	TypeLogin     GameType = 1
	TypeLogout    GameType = 2
	TypeInput     GameType = 3
	TypeAlive     GameType = 4
	TypeGameState GameType = 5
)

func (t GameType) String() string {
	switch t {
	case TypeLogin:
		return "LOGIN"
	case TypeLogout:
		return "LOGOUT"
	case TypeInput:
		return "INPUT"
	case TypeAlive:
		return "ALIVE"
	case TypeGameState:
		return "GAMESTATE"
	default:
		return fmt.Sprintf("GameType(%d)", uint8(t))
	}
}

// GameMessage is implemented by every game-protocol message.
type GameMessage interface {
	GameType() GameType
	encode(w *writer)
}

// Login asks the server to spawn a player for the sender's address.
type Login struct {
	Name string
}

// Logout ends the sender's session.
type Logout struct{}

// Input snapshots the currently pressed input codes.
type Input struct {
	Keys []uint16
}

// Alive is both the heartbeat probe and its acknowledgement.
type Alive struct{}

func (Login) GameType() GameType     { return TypeLogin }
func (Logout) GameType() GameType    { return TypeLogout }
func (Input) GameType() GameType     { return TypeInput }
func (Alive) GameType() GameType     { return TypeAlive }
func (GameState) GameType() GameType { return TypeGameState }

func (m Login) encode(w *writer) { w.str(m.Name) }
func (Logout) encode(*writer)    {}
func (m Input) encode(w *writer) { appendKeys(w, m.Keys) }
func (Alive) encode(*writer)     {}

// EncodeGame renders a complete game datagram. GAMESTATE batches are written
// as a single datagram; see EncodeGameState for budgeted splitting.
func EncodeGame(msg GameMessage) []byte {
	w := newWriter(GameMagic, uint8(msg.GameType()))
	msg.encode(w)
	return w.buf
}

// DecodeGame parses a game datagram. For GAMESTATE a non-nil message may be
// returned together with an error: it then holds the sub-messages decoded
// before the batch was aborted.
func DecodeGame(data []byte) (GameMessage, error) {
	typ, r, err := readHeader(data, GameMagic)
	if err != nil {
		return nil, err
	}
	switch GameType(typ) {
	case TypeLogin:
		msg := Login{Name: r.str()}
		if err := r.finish(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeLogin, err)
		}
		return msg, nil
	case TypeLogout:
		if err := r.finish(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeLogout, err)
		}
		return Logout{}, nil
	case TypeInput:
		msg := Input{Keys: readKeys(r)}
		if err := r.finish(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeInput, err)
		}
		return msg, nil
	case TypeAlive:
		if err := r.finish(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeAlive, err)
		}
		return Alive{}, nil
	case TypeGameState:
		return decodeGameState(r)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, typ)
	}
}
