package worker

import (
	"context"
	"testing"
)

func TestNewLimiter_DefaultBurst(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("burst: %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 5 {
		t.Errorf("negative burst must fall back to 5, got %d", l.defaultBurst)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("client-a") {
		t.Error("first request for a key must pass")
	}
	if l.Allow("client-a") {
		t.Error("burst of 1 must reject the immediate second request")
	}
	if !l.Allow("client-b") {
		t.Error("another key has its own bucket")
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)
	if err := l.Wait(context.Background(), "client-a"); err != nil {
		t.Fatal(err)
	}
}

func TestLimiter_SetKeyRate(t *testing.T) {
	l := NewLimiter(100, 10)
	l.SetKeyRate("slow-client", 0.1, 1)

	if !l.Allow("slow-client") {
		t.Error("first request should pass the burst")
	}
	if l.Allow("slow-client") {
		t.Error("second request should be rejected")
	}
	if !l.Allow("normal-client") {
		t.Error("other keys keep the default rate")
	}
}
