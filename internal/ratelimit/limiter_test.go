package ratelimit

import (
	"testing"
	"time"
)

func TestAllowUnderLimit(t *testing.T) {
	l := New(3, time.Minute)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !l.AllowAt("k", now) {
			t.Fatalf("expected attempt %d allowed", i+1)
		}
	}
	if l.AllowAt("k", now) {
		t.Error("expected fourth attempt denied")
	}
}

func TestDenialDoesNotConsume(t *testing.T) {
	l := New(2, time.Minute)
	now := time.Now()
	l.AllowAt("k", now)
	l.AllowAt("k", now)

	// Denied attempts must not extend the window.
	for i := 0; i < 10; i++ {
		l.AllowAt("k", now)
	}
	if got := l.CountAt("k", now); got != 2 {
		t.Errorf("expected count 2, got %d", got)
	}
}

func TestWindowSlides(t *testing.T) {
	l := New(2, time.Minute)
	start := time.Now()
	l.AllowAt("k", start)
	l.AllowAt("k", start)
	if l.AllowAt("k", start) {
		t.Fatal("expected denial at limit")
	}

	later := start.Add(61 * time.Second)
	if !l.AllowAt("k", later) {
		t.Error("expected allowance after window slid")
	}
	if got := l.CountAt("k", later); got != 1 {
		t.Errorf("expected only the new event in window, got %d", got)
	}
}

func TestKeysIndependent(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Now()
	if !l.AllowAt("a", now) {
		t.Fatal("expected first key allowed")
	}
	if !l.AllowAt("b", now) {
		t.Error("expected second key unaffected")
	}
}

func TestDefaults(t *testing.T) {
	l := New(0, 0)
	now := time.Now()
	for i := 0; i < 60; i++ {
		if !l.AllowAt("k", now) {
			t.Fatalf("expected default limit of 60, denied at %d", i+1)
		}
	}
	if l.AllowAt("k", now) {
		t.Error("expected denial after default limit")
	}
}

func TestReset(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Now()
	l.AllowAt("k", now)
	if l.AllowAt("k", now) {
		t.Fatal("expected denial")
	}
	l.Reset()
	if !l.AllowAt("k", now) {
		t.Error("expected allowance after reset")
	}
}
