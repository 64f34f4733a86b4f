package transport

import (
	"bytes"
	"net/netip"
	"testing"
	"time"
)

func TestNetworkDelivers(t *testing.T) {
	network := NewNetwork()
	a, err := network.Listen(netip.AddrPort{})
	if err != nil {
		t.Fatalf("listen a: %v", err)
	}
	b, err := network.Listen(netip.AddrPort{})
	if err != nil {
		t.Fatalf("listen b: %v", err)
	}
	if a.LocalAddr() == b.LocalAddr() {
		t.Fatalf("endpoints share address %s", a.LocalAddr())
	}

	payload := []byte("hello")
	if err := a.Send(b.LocalAddr(), payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	payload[0] = 'j'

	got := Drain(b, 0)
	if len(got) != 1 {
		t.Fatalf("expected one packet, got %d", len(got))
	}
	if got[0].Addr != a.LocalAddr() {
		t.Fatalf("unexpected sender %s", got[0].Addr)
	}
	if !bytes.Equal(got[0].Data, []byte("hello")) {
		t.Fatalf("payload aliased sender buffer: %q", got[0].Data)
	}
}

func TestNetworkLosesUnknownAndFiltered(t *testing.T) {
	network := NewNetwork()
	a, _ := network.Listen(netip.AddrPort{})
	b, _ := network.Listen(netip.AddrPort{})

	if err := a.Send(netip.MustParseAddrPort("10.0.0.1:1"), []byte{1}); err != nil {
		t.Fatalf("send to unknown address should be silently lost: %v", err)
	}

	network.SetFilter(func(from, to netip.AddrPort, data []byte) bool {
		return data[0] != 0xFF
	})
	_ = a.Send(b.LocalAddr(), []byte{0xFF})
	_ = a.Send(b.LocalAddr(), []byte{0x01})
	got := Drain(b, 0)
	if len(got) != 1 || got[0].Data[0] != 0x01 {
		t.Fatalf("filter not applied: %+v", got)
	}
	if a.Sent() != 3 {
		t.Fatalf("expected three sends recorded, got %d", a.Sent())
	}
}

func TestListenRejectsTakenAddress(t *testing.T) {
	network := NewNetwork()
	addr := netip.MustParseAddrPort("127.0.0.1:7777")
	if _, err := network.Listen(addr); err != nil {
		t.Fatalf("listen: %v", err)
	}
	if _, err := network.Listen(addr); err != ErrAddrInUse {
		t.Fatalf("expected ErrAddrInUse, got %v", err)
	}
}

func TestDrainIsNonBlockingAndBounded(t *testing.T) {
	network := NewNetwork()
	a, _ := network.Listen(netip.AddrPort{})
	b, _ := network.Listen(netip.AddrPort{})

	if got := Drain(b, 0); len(got) != 0 {
		t.Fatalf("expected empty drain, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		_ = a.Send(b.LocalAddr(), []byte{byte(i)})
	}
	if got := Drain(b, 3); len(got) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(got))
	}
	rest := Drain(b, 0)
	if len(rest) != 2 || rest[0].Data[0] != 3 {
		t.Fatalf("unexpected remainder: %+v", rest)
	}
}

func TestClosedConn(t *testing.T) {
	network := NewNetwork()
	a, _ := network.Listen(netip.AddrPort{})
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Send(a.LocalAddr(), []byte{1}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if got := Drain(a, 0); len(got) != 0 {
		t.Fatalf("closed conn yielded packets")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestUDPLoopback(t *testing.T) {
	server, err := ListenUDP(UDPConfig{Addr: "127.0.0.1:0"}, nil, nil)
	if err != nil {
		t.Fatalf("listen server: %v", err)
	}
	defer server.Close()
	client, err := ListenUDP(UDPConfig{Addr: "127.0.0.1:0"}, nil, nil)
	if err != nil {
		t.Fatalf("listen client: %v", err)
	}
	defer client.Close()

	if err := client.Send(server.LocalAddr(), []byte("ping")); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case p := <-server.Packets():
		if string(p.Data) != "ping" {
			t.Fatalf("unexpected payload %q", p.Data)
		}
		if p.Addr != client.LocalAddr() {
			t.Fatalf("unexpected sender %s, want %s", p.Addr, client.LocalAddr())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for datagram")
	}

	if err := server.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-server.Packets(); ok {
		t.Fatalf("packets channel should be closed after Close")
	}
	if err := server.Send(client.LocalAddr(), []byte("late")); err != ErrClosed {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}
