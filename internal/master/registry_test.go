package master

import (
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/benruijl/walledin/internal/net/proto"
)

func TestRegistryNotifyDoesNotRefresh(t *testing.T) {
	r := NewRegistry(2*time.Second, 0)
	addr := netip.MustParseAddrPort("192.0.2.1:7777")

	created, err := r.Notify(addr, proto.ServerNotification{Name: "alpha", Players: 1, MaxPlayers: 8, Mode: "dm"}, at(0))
	if err != nil || !created {
		t.Fatalf("expected registration, got created=%v err=%v", created, err)
	}
	created, err = r.Notify(addr, proto.ServerNotification{Name: "alpha", Players: 5, MaxPlayers: 8, Mode: "ctf"}, at(1500))
	if err != nil || created {
		t.Fatalf("expected update, got created=%v err=%v", created, err)
	}
	e, _ := r.Get(addr)
	if e.Players != 5 || e.Mode != "ctf" {
		t.Fatalf("details not updated: %+v", e)
	}
	if !e.LastSeen.Equal(at(0)) {
		t.Fatalf("notification moved last seen to %v", e.LastSeen.Sub(epoch))
	}

	if evicted := r.Sweep(at(2000)); len(evicted) != 0 {
		t.Fatalf("evicted at exactly the timeout")
	}
	evicted := r.Sweep(at(2001))
	if len(evicted) != 1 || evicted[0].Addr != addr {
		t.Fatalf("expected eviction, got %+v", evicted)
	}
	if r.Len() != 0 {
		t.Fatalf("registry not empty after eviction")
	}
}

func TestRegistryRefresh(t *testing.T) {
	r := NewRegistry(2*time.Second, 0)
	addr := netip.MustParseAddrPort("192.0.2.1:7777")
	if r.Refresh(addr, at(0)) {
		t.Fatalf("refreshed an unknown address")
	}
	_, _ = r.Notify(addr, proto.ServerNotification{Name: "alpha"}, at(0))
	if !r.Refresh(addr, at(1050)) {
		t.Fatalf("refresh of known address failed")
	}
	r.Refresh(addr, at(500))
	if e, _ := r.Get(addr); !e.LastSeen.Equal(at(1050)) {
		t.Fatalf("last seen moved backwards: %v", e.LastSeen.Sub(epoch))
	}
	if evicted := r.Sweep(at(3000)); len(evicted) != 0 {
		t.Fatalf("refreshed entry evicted early")
	}
}

func TestRegistryCapacityAndClamping(t *testing.T) {
	r := NewRegistry(time.Second, 2)
	long := strings.Repeat("n", 200)
	for i, a := range []string{"192.0.2.3:1", "192.0.2.1:1"} {
		if _, err := r.Notify(netip.MustParseAddrPort(a), proto.ServerNotification{Name: long, Mode: long}, at(i)); err != nil {
			t.Fatalf("notify %s: %v", a, err)
		}
	}
	_, err := r.Notify(netip.MustParseAddrPort("192.0.2.2:1"), proto.ServerNotification{}, at(3))
	if !errors.Is(err, ErrRegistryFull) {
		t.Fatalf("expected ErrRegistryFull, got %v", err)
	}

	list := r.List()
	if len(list) != 2 || list[0].Addr.String() != "192.0.2.1:1" {
		t.Fatalf("list not ordered by address: %+v", list)
	}
	if len(list[0].Name) != MaxNameLen || len(list[0].Mode) != MaxModeLen {
		t.Fatalf("advertisement not clamped: %d %d", len(list[0].Name), len(list[0].Mode))
	}
}

func TestChallengerAcceptsOnlyLatestNonce(t *testing.T) {
	c := NewChallenger(time.Second, &sequenceSource{})
	if c.Verify(0) {
		t.Fatalf("verified before any challenge")
	}
	if !c.Due(at(0)) {
		t.Fatalf("first challenge should be due immediately")
	}
	first, err := c.Issue(at(0))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if c.Due(at(999)) || !c.Due(at(1000)) {
		t.Fatalf("unexpected due schedule")
	}
	second, _ := c.Issue(at(1000))
	if first == second {
		t.Fatalf("nonce reused")
	}
	if c.Verify(first) {
		t.Fatalf("stale nonce accepted")
	}
	if !c.Verify(second) {
		t.Fatalf("current nonce rejected")
	}
}

func TestChallengerUsesCryptoRandByDefault(t *testing.T) {
	c := NewChallenger(time.Second, nil)
	a, err := c.Issue(at(0))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, _ := c.Issue(at(1000))
	if a == b {
		t.Fatalf("two random nonces collided: %d", a)
	}
}

func TestRegistryKeyedBySource(t *testing.T) {
	r := NewRegistry(2*time.Second, 0)
	src := netip.MustParseAddrPort("192.0.2.1:40000")
	if _, err := r.Notify(src, proto.ServerNotification{Port: 7575, Name: "alpha"}, at(0)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	e, ok := r.Get(src)
	if !ok || e.Addr != netip.MustParseAddrPort("192.0.2.1:7575") || e.Source != src {
		t.Fatalf("entry = %+v", e)
	}
	if r.Contains(e.Addr) {
		t.Fatalf("advertised address should not be a key")
	}
	if !r.Refresh(src, at(500)) {
		t.Fatalf("refresh by source failed")
	}
}
