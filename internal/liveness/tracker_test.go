package liveness

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{CheckInterval: 2 * time.Second, WaitTimeout: 3 * time.Second}
}

func TestSilentPeerDiesExactlyOnce(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker := New(testConfig(), start)

	step := 50 * time.Millisecond
	var probes, expiries int
	var diedAt time.Time
	for now := start; now.Before(start.Add(10 * time.Second)); now = now.Add(step) {
		switch tracker.Tick(now) {
		case Probe:
			probes++
		case Expire:
			expiries++
			diedAt = now
		}
	}
	if probes != 1 {
		t.Fatalf("expected exactly one probe, got %d", probes)
	}
	if expiries != 1 {
		t.Fatalf("expected exactly one expiry, got %d", expiries)
	}
	earliest := start.Add(testConfig().CheckInterval + testConfig().WaitTimeout)
	if diedAt.Before(earliest) {
		t.Fatalf("peer died at %v, before %v", diedAt.Sub(start), earliest.Sub(start))
	}
	if tracker.State() != Dead {
		t.Fatalf("expected dead state, got %s", tracker.State())
	}
}

func TestTrafficAfterProbeRevives(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker := New(testConfig(), start)

	probeAt := start.Add(2100 * time.Millisecond)
	if action := tracker.Tick(probeAt); action != Probe {
		t.Fatalf("expected probe, got %d", action)
	}
	if tracker.State() != AwaitingAck {
		t.Fatalf("expected awaiting ack, got %s", tracker.State())
	}

	tracker.Heard(probeAt.Add(2900 * time.Millisecond))
	if tracker.State() != Alive {
		t.Fatalf("expected alive after traffic, got %s", tracker.State())
	}
	if !tracker.ProbeSentAt().IsZero() {
		t.Fatalf("probe timestamp should be cleared")
	}
	if action := tracker.Tick(probeAt.Add(3 * time.Second)); action != None {
		t.Fatalf("revived peer should not expire, got %d", action)
	}
}

func TestNoProbeWhileChatty(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker := New(testConfig(), start)
	for i := 1; i <= 100; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		tracker.Heard(now)
		if action := tracker.Tick(now); action != None {
			t.Fatalf("tick %d: unexpected action %d", i, action)
		}
	}
}

func TestDeadIsTerminal(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker := New(testConfig(), start)
	tracker.Tick(start.Add(3 * time.Second))
	if action := tracker.Tick(start.Add(6 * time.Second)); action != Expire {
		t.Fatalf("expected expire, got %d", action)
	}
	tracker.Heard(start.Add(7 * time.Second))
	if tracker.State() != Dead {
		t.Fatalf("dead tracker revived by traffic")
	}
	if action := tracker.Tick(start.Add(20 * time.Second)); action != None {
		t.Fatalf("dead tracker acted again: %d", action)
	}
}

func TestCheckIntervalBoundary(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker := New(testConfig(), start)
	if action := tracker.Tick(start.Add(2 * time.Second)); action != None {
		t.Fatalf("probe fired at exactly the check interval")
	}
	if action := tracker.Tick(start.Add(2*time.Second + time.Millisecond)); action != Probe {
		t.Fatalf("expected probe just past the check interval, got %d", action)
	}
}

func TestZeroConfigUsesDefaults(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker := New(Config{}, start)
	if action := tracker.Tick(start.Add(DefaultConfig().CheckInterval)); action != None {
		t.Fatalf("unexpected action %d", action)
	}
}
