package client

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/benruijl/walledin/internal/attribute"
	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/transport"
)

const (
	serverAddr = "127.0.0.1:7000"
	clientAddr = "127.0.0.1:7001"
)

func listen(t *testing.T, network *transport.Network, addr string) *transport.MemConn {
	t.Helper()
	conn, err := network.Listen(netip.MustParseAddrPort(addr))
	if err != nil {
		t.Fatalf("listen %s: %v", addr, err)
	}
	return conn
}

// expect reads game messages from conn until one of type want arrives.
func expect(t *testing.T, conn transport.Conn, want proto.GameType) proto.GameMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-conn.Packets():
			msg, err := proto.DecodeGame(p.Data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg.GameType() == want {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestAgentSession(t *testing.T) {
	network := transport.NewNetwork()
	server := listen(t, network, serverAddr)
	conn := listen(t, network, clientAddr)
	client := netip.MustParseAddrPort(clientAddr)

	frames := make(chan Frame, 64)
	agent, err := NewAgent(Config{Server: serverAddr, Name: "alice", InputInterval: 5 * time.Millisecond, LoginRetry: 20 * time.Millisecond},
		conn,
		InputFunc(func() []uint16 { return []uint16{1, 5} }),
		RenderFunc(func(f Frame) {
			select {
			case frames <- f:
			default:
			}
		}),
		Deps{})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	login := expect(t, server, proto.TypeLogin).(proto.Login)
	if login.Name != "alice" {
		t.Fatalf("login name = %q", login.Name)
	}
	// Unanswered logins are retried.
	expect(t, server, proto.TypeLogin)

	state := proto.GameState{Entities: []proto.EntityMessage{create("alice", pos(10, 20))}}
	for _, datagram := range proto.EncodeGameState(state.Entities, 1200) {
		if err := server.Send(client, datagram); err != nil {
			t.Fatalf("send state: %v", err)
		}
	}

	input := expect(t, server, proto.TypeInput).(proto.Input)
	if len(input.Keys) != 2 || input.Keys[0] != 1 || input.Keys[1] != 5 {
		t.Fatalf("input keys = %v", input.Keys)
	}
	if !agent.Joined() {
		t.Fatalf("agent should be joined once its player is created")
	}
	if v, ok := agent.Mirror().Lookup("alice"); !ok {
		t.Fatalf("mirror missing alice")
	} else if p, _ := v.Field(attribute.Position.ID()); !p.Equal(attribute.Vector{X: 10, Y: 20}) {
		t.Fatalf("position = %v", p)
	}

	if err := server.Send(client, proto.EncodeGame(proto.Alive{})); err != nil {
		t.Fatalf("send alive: %v", err)
	}
	expect(t, server, proto.TypeAlive)

	var joinedFrame bool
	for !joinedFrame {
		select {
		case f := <-frames:
			joinedFrame = f.Joined && len(f.Entities) == 1
		case <-time.After(2 * time.Second):
			t.Fatalf("no joined frame rendered")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	expect(t, server, proto.TypeLogout)
}

func TestAgentKeepsLoggingInUntilBootstrap(t *testing.T) {
	network := transport.NewNetwork()
	server := listen(t, network, serverAddr)
	conn := listen(t, network, clientAddr)
	client := netip.MustParseAddrPort(clientAddr)

	agent, err := NewAgent(Config{Server: serverAddr, Name: "carol", InputInterval: 5 * time.Millisecond, LoginRetry: 20 * time.Millisecond}, conn, nil, nil, Deps{})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	expect(t, server, proto.TypeLogin)

	// The bootstrap went missing: only a delta for an unseen entity and the
	// CREATE of someone else's new player arrive.
	score := attribute.Field{ID: attribute.Score.ID(), Value: attribute.Int(3)}
	for _, batch := range []proto.GameState{
		{Entities: []proto.EntityMessage{{Op: proto.SubUpdate, Name: "bob", Fields: []attribute.Field{score}}}},
		{Entities: []proto.EntityMessage{create("dave", pos(0, 0))}},
	} {
		if err := server.Send(client, proto.EncodeGame(batch)); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	time.Sleep(50 * time.Millisecond)
	if agent.Joined() {
		t.Fatalf("agent joined without its bootstrap")
	}
	expect(t, server, proto.TypeLogin)

	// The resent LOGIN is answered with the full state; the name collided.
	bootstrap := proto.GameState{Entities: []proto.EntityMessage{
		create("bob", pos(1, 1), score),
		create("dave", pos(0, 0)),
		create("carol(2)", pos(2, 2)),
	}}
	if err := server.Send(client, proto.EncodeGame(bootstrap)); err != nil {
		t.Fatalf("send bootstrap: %v", err)
	}
	expect(t, server, proto.TypeInput)
	if !agent.Joined() {
		t.Fatalf("agent should be joined after its bootstrap")
	}
	for _, name := range []string{"bob", "dave", "carol(2)"} {
		if _, ok := agent.Mirror().Lookup(name); !ok {
			t.Fatalf("mirror missing %s", name)
		}
	}

	cancel()
	<-done
}

func TestAgentIgnoresStrangers(t *testing.T) {
	network := transport.NewNetwork()
	listen(t, network, serverAddr)
	stranger := listen(t, network, "127.0.0.1:7002")
	conn := listen(t, network, clientAddr)

	agent, err := NewAgent(Config{Server: serverAddr, Name: "bob", InputInterval: 5 * time.Millisecond}, conn, nil, nil, Deps{})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	state := proto.GameState{Entities: []proto.EntityMessage{create("mallory", pos(0, 0))}}
	if err := stranger.Send(netip.MustParseAddrPort(clientAddr), proto.EncodeGame(state)); err != nil {
		t.Fatalf("send: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	if agent.Joined() || agent.Mirror().Len() != 0 {
		t.Fatalf("state from a stranger was applied")
	}
}

func TestAgentAppliesAbortedBatchPrefix(t *testing.T) {
	network := transport.NewNetwork()
	server := listen(t, network, serverAddr)
	conn := listen(t, network, clientAddr)

	agent, err := NewAgent(Config{Server: serverAddr, Name: "carol"}, conn, nil, nil, Deps{})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	data := proto.EncodeGame(proto.GameState{Entities: []proto.EntityMessage{create("a", pos(1, 1)), create("b", pos(2, 2))}})
	// Cut the second sub-message short so its length runs past the datagram.
	truncated := data[:len(data)-3]
	agent.handle(context.Background(), transport.Packet{Addr: server.LocalAddr(), Data: truncated})

	if _, ok := agent.Mirror().Lookup("a"); !ok {
		t.Fatalf("prefix of aborted batch was not applied")
	}
	if _, ok := agent.Mirror().Lookup("b"); ok {
		t.Fatalf("truncated sub-message should not be applied")
	}
	if agent.Faults() == 0 {
		t.Fatalf("expected a recorded fault")
	}
}

func TestNewAgentRejectsBadAddress(t *testing.T) {
	network := transport.NewNetwork()
	conn := listen(t, network, clientAddr)
	if _, err := NewAgent(Config{Server: "not-an-address"}, conn, nil, nil, Deps{}); err == nil {
		t.Fatalf("expected error for bad server address")
	}
}
