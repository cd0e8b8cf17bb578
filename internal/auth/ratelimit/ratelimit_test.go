package ratelimit

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, window time.Duration) (*Limiter, *clock) {
	t.Helper()
	l := New(window)
	t.Cleanup(l.Close)
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	l.now = c.now
	return l, c
}

func TestAllowBurstThenRefill(t *testing.T) {
	l, c := newTestLimiter(t, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("ip:1", 3) {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	if l.Allow("ip:1", 3) {
		t.Fatal("fourth request allowed, want denied")
	}
	if l.Allow("ip:1", 3) {
		t.Fatal("still denied without time passing")
	}

	// 3 per minute refills one token every 20s.
	c.t = c.t.Add(20 * time.Second)
	if !l.Allow("ip:1", 3) {
		t.Error("expected one token after 20s")
	}
	if l.Allow("ip:1", 3) {
		t.Error("only one token should have refilled")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, time.Minute)
	if !l.Allow("a", 1) || l.Allow("a", 1) {
		t.Fatal("key a should allow exactly one")
	}
	if !l.Allow("b", 1) {
		t.Error("key b must not share a's bucket")
	}
	l.Reset("a")
	if !l.Allow("a", 1) {
		t.Error("reset key should start with a full bucket")
	}
}

func TestRemainingAndSweep(t *testing.T) {
	l, c := newTestLimiter(t, time.Minute)
	if got := l.Remaining("k", 5); got != 5 {
		t.Errorf("unseen remaining = %d, want 5", got)
	}
	l.Allow("k", 5)
	l.Allow("k", 5)
	if got := l.Remaining("k", 5); got != 3 {
		t.Errorf("remaining = %d, want 3", got)
	}

	c.t = c.t.Add(3 * time.Minute)
	l.sweep()
	l.mu.Lock()
	n := len(l.entries)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("%d entries after sweep, want 0", n)
	}
}

func TestZeroLimitDenies(t *testing.T) {
	l, _ := newTestLimiter(t, time.Minute)
	if l.Allow("x", 0) {
		t.Error("zero limit must deny")
	}
}
