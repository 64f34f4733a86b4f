package master

import (
	"encoding/binary"
	"net/netip"
	"testing"
	"time"

	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/transport"
)

// sequenceSource yields nonces 1, 2, 3, ... to a Challenger.
type sequenceSource struct {
	next uint64
}

func (s *sequenceSource) Read(p []byte) (int, error) {
	s.next++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.next)
	return copy(p, buf[:]), nil
}

var epoch = time.Unix(1_700_000_000, 0)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func listen(t *testing.T, network *transport.Network, addr string) *transport.MemConn {
	t.Helper()
	conn, err := network.Listen(netip.MustParseAddrPort(addr))
	if err != nil {
		t.Fatalf("listen %s: %v", addr, err)
	}
	return conn
}

func masterMessages(t *testing.T, conn transport.Conn) []proto.MasterMessage {
	t.Helper()
	var out []proto.MasterMessage
	for _, p := range transport.Drain(conn, 0) {
		msg, err := proto.DecodeMaster(p.Data)
		if err != nil {
			t.Fatalf("decode master datagram: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

func lastChallenge(t *testing.T, conn transport.Conn) uint64 {
	t.Helper()
	var nonce uint64
	found := false
	for _, msg := range masterMessages(t, conn) {
		if c, ok := msg.(proto.Challenge); ok {
			nonce, found = c.Nonce, true
		}
	}
	if !found {
		t.Fatalf("no challenge received")
	}
	return nonce
}
