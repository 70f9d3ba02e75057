package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowEnforcesBurst(t *testing.T) {
	t.Parallel()

	l := New(1, 2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !l.Allow("ip:10.0.0.1", now) {
		t.Fatal("first request should pass")
	}
	if !l.Allow("ip:10.0.0.1", now) {
		t.Fatal("second request should pass within burst")
	}
	if l.Allow("ip:10.0.0.1", now) {
		t.Fatal("third request should be limited")
	}

	// The bucket refills after a second.
	if !l.Allow("ip:10.0.0.1", now.Add(time.Second)) {
		t.Fatal("request after refill should pass")
	}
}

func TestAllowTracksKeysIndependently(t *testing.T) {
	t.Parallel()

	l := New(1, 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !l.Allow("ip:10.0.0.1", now) {
		t.Fatal("first key should pass")
	}
	if !l.Allow("ip:10.0.0.2", now) {
		t.Fatal("second key should have its own bucket")
	}
	if l.Allow("ip:10.0.0.1", now) {
		t.Fatal("exhausted key should be limited")
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	t.Parallel()

	var l *Limiter
	if !l.Allow("anything", time.Now()) {
		t.Fatal("nil limiter should not limit")
	}
	if New(0, 10) != nil {
		t.Fatal("zero rps should disable limiting")
	}
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	if got := ClientKey(r); got != "ip:203.0.113.9" {
		t.Fatalf("ClientKey() = %q, want %q", got, "ip:203.0.113.9")
	}

	r.RemoteAddr = "203.0.113.9"
	if got := ClientKey(r); got != "ip:203.0.113.9" {
		t.Fatalf("ClientKey() without port = %q", got)
	}

	r.RemoteAddr = ""
	if got := ClientKey(r); got != "ip:unknown" {
		t.Fatalf("ClientKey() empty = %q", got)
	}
}
