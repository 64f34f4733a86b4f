package proto

import (
	"fmt"
	"net/netip"
)

// MasterType discriminates master-server protocol messages.
type MasterType uint8

const (
	TypeGetServers         MasterType = 1
	TypeServers            MasterType = 2
	TypeServerNotification MasterType = 3
	TypeChallenge          MasterType = 4
	TypeChallengeResponse  MasterType = 5
)

func (t MasterType) String() string {
	switch t {
	case TypeGetServers:
		return "GET_SERVERS"
	case TypeServers:
		return "SERVERS"
	case TypeServerNotification:
		return "SERVER_NOTIFICATION"
	case TypeChallenge:
		return "CHALLENGE"
	case TypeChallengeResponse:
		return "CHALLENGE_RESPONSE"
	default:
		return fmt.Sprintf("MasterType(%d)", uint8(t))
	}
}

// MasterMessage is implemented by every master-protocol message.
type MasterMessage interface {
	MasterType() MasterType
	encode(w *writer)
}

// GetServers asks the master for its registry.
type GetServers struct{}

// ServerInfo is one advertised server as listed in a SERVERS reply.
type ServerInfo struct {
	Addr       netip.AddrPort
	Name       string
	Players    int32
	MaxPlayers int32
	Mode       string
}

// Servers carries the whole registry in one datagram.
type Servers struct {
	Servers []ServerInfo
}

// ServerNotification advertises a game server. The IP is taken from the
// datagram's source address; only the port travels in the payload.
type ServerNotification struct {
	Port       uint16
	Name       string
	Players    int32
	MaxPlayers int32
	Mode       string
}

// Challenge carries the master's current nonce.
type Challenge struct {
	Nonce uint64
}

// ChallengeResponse echoes a challenge nonce back to the master.
type ChallengeResponse struct {
	Nonce uint64
}

func (GetServers) MasterType() MasterType         { return TypeGetServers }
func (Servers) MasterType() MasterType            { return TypeServers }
func (ServerNotification) MasterType() MasterType { return TypeServerNotification }
func (Challenge) MasterType() MasterType          { return TypeChallenge }
func (ChallengeResponse) MasterType() MasterType  { return TypeChallengeResponse }

func (GetServers) encode(*writer) {}

func (m Servers) encode(w *writer) {
	w.u32(uint32(len(m.Servers)))
	for _, s := range m.Servers {
		appendServerInfo(w, s)
	}
}

func appendServerInfo(w *writer, s ServerInfo) {
	w.str(s.Addr.String())
	w.str(s.Name)
	w.i32(s.Players)
	w.i32(s.MaxPlayers)
	w.str(s.Mode)
}

func (m ServerNotification) encode(w *writer) {
	w.u16(m.Port)
	w.str(m.Name)
	w.i32(m.Players)
	w.i32(m.MaxPlayers)
	w.str(m.Mode)
}

func (m Challenge) encode(w *writer)         { w.u64(m.Nonce) }
func (m ChallengeResponse) encode(w *writer) { w.u64(m.Nonce) }

// EncodeMaster renders a complete master-protocol datagram.
func EncodeMaster(msg MasterMessage) []byte {
	w := newWriter(MasterMagic, uint8(msg.MasterType()))
	msg.encode(w)
	return w.buf
}

// ServerInfoSize is the encoded size of one SERVERS tuple.
func ServerInfoSize(s ServerInfo) int {
	w := &writer{}
	appendServerInfo(w, s)
	return len(w.buf)
}

// DecodeMaster parses a master-protocol datagram.
func DecodeMaster(data []byte) (MasterMessage, error) {
	typ, r, err := readHeader(data, MasterMagic)
	if err != nil {
		return nil, err
	}
	var msg MasterMessage
	switch MasterType(typ) {
	case TypeGetServers:
		msg = GetServers{}
	case TypeServers:
		m, err := decodeServers(r)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeServers, err)
		}
		msg = m
	case TypeServerNotification:
		msg = ServerNotification{
			Port:       r.u16(),
			Name:       r.str(),
			Players:    r.i32(),
			MaxPlayers: r.i32(),
			Mode:       r.str(),
		}
	case TypeChallenge:
		msg = Challenge{Nonce: r.u64()}
	case TypeChallengeResponse:
		msg = ChallengeResponse{Nonce: r.u64()}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, typ)
	}
	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", MasterType(typ), err)
	}
	return msg, nil
}

func decodeServers(r *reader) (Servers, error) {
	n := r.u32()
	if r.err != nil {
		return Servers{}, r.err
	}
	out := Servers{Servers: make([]ServerInfo, 0, min(int(n), r.remaining()/16))}
	for i := uint32(0); i < n; i++ {
		raw := r.str()
		s := ServerInfo{
			Name:       r.str(),
			Players:    r.i32(),
			MaxPlayers: r.i32(),
			Mode:       r.str(),
		}
		if r.err != nil {
			return Servers{}, r.err
		}
		addr, err := netip.ParseAddrPort(raw)
		if err != nil {
			return Servers{}, fmt.Errorf("%w: %q", ErrBadAddress, raw)
		}
		s.Addr = addr
		out.Servers = append(out.Servers, s)
	}
	return out, nil
}
