package master

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/transport"
)

func TestAnnouncerNotifiesOnInterval(t *testing.T) {
	ctx := context.Background()
	network := transport.NewNetwork()
	masterConn := listen(t, network, masterAddr)
	game := listen(t, network, gameAddr)

	a, err := NewAnnouncer(AnnouncerConfig{Master: masterAddr, Interval: 5 * time.Second, Name: "alpha", Mode: "dm", Port: 7777}, game, Deps{})
	if err != nil {
		t.Fatalf("new announcer: %v", err)
	}
	a.Tick(ctx, at(0), Status{Players: 1, MaxPlayers: 8})
	a.Tick(ctx, at(1000), Status{Players: 2, MaxPlayers: 8})
	a.Tick(ctx, at(5000), Status{Players: 3, MaxPlayers: 8})

	msgs := masterMessages(t, masterConn)
	if len(msgs) != 2 {
		t.Fatalf("expected two notifications, got %d", len(msgs))
	}
	want := proto.ServerNotification{Port: 7777, Name: "alpha", Players: 3, MaxPlayers: 8, Mode: "dm"}
	if got := msgs[1].(proto.ServerNotification); got != want {
		t.Fatalf("unexpected notification %+v", got)
	}
}

func TestAnnouncerEchoesChallengesFromMasterOnly(t *testing.T) {
	ctx := context.Background()
	network := transport.NewNetwork()
	masterConn := listen(t, network, masterAddr)
	game := listen(t, network, gameAddr)
	a, _ := NewAnnouncer(AnnouncerConfig{Master: masterAddr}, game, Deps{})

	challenge := proto.EncodeMaster(proto.Challenge{Nonce: 0xDEADBEEF})
	a.Handle(ctx, transport.Packet{Addr: netip.MustParseAddrPort("127.0.0.66:27900"), Data: challenge})
	a.Handle(ctx, transport.Packet{Addr: masterConn.LocalAddr(), Data: proto.EncodeMaster(proto.GetServers{})})
	a.Handle(ctx, transport.Packet{Addr: masterConn.LocalAddr(), Data: challenge})

	msgs := masterMessages(t, masterConn)
	if len(msgs) != 1 {
		t.Fatalf("expected one response, got %d", len(msgs))
	}
	if got := msgs[0].(proto.ChallengeResponse); got.Nonce != 0xDEADBEEF {
		t.Fatalf("echoed nonce %x", got.Nonce)
	}
	if a.Answered() != 1 {
		t.Fatalf("answered count %d", a.Answered())
	}
}

func TestAnnouncerRejectsBadAddress(t *testing.T) {
	if _, err := NewAnnouncer(AnnouncerConfig{Master: "not an address"}, nil, Deps{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestQueryAgainstRunningMaster(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	network := transport.NewNetwork()
	m, _ := newTestMaster(t, network)
	game := listen(t, network, gameAddr)
	client := listen(t, network, "127.0.0.3:5000")

	a, _ := NewAnnouncer(AnnouncerConfig{Master: masterAddr, Name: "alpha", Mode: "dm"}, game, Deps{})
	a.Tick(ctx, at(0), Status{Players: 0, MaxPlayers: 4})
	m.Tick(ctx, at(0), 0)

	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Tick(ctx, at(1), 0)
			}
		}
	}()

	servers, err := Query(ctx, client, netip.MustParseAddrPort(masterAddr), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(servers) != 1 || servers[0].Name != "alpha" || servers[0].Addr != game.LocalAddr() {
		t.Fatalf("unexpected servers %+v", servers)
	}
}

func TestQueryTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	network := transport.NewNetwork()
	client := listen(t, network, "127.0.0.3:5000")

	_, err := Query(ctx, client, netip.MustParseAddrPort(masterAddr), 10*time.Millisecond)
	if !errors.Is(err, ErrNoReply) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ErrNoReply wrapping the deadline, got %v", err)
	}
}
