package allowlist

import "testing"

func TestOpenModeAllowsAll(t *testing.T) {
	g := New("messaging", Config{RateLimitPerMinute: 60}, nil)
	d := g.Check("+15551234567", "")
	if !d.Allowed {
		t.Errorf("expected open mode to allow, got %q", d.Reason)
	}
	if !g.IsNumberAllowed("anyone") {
		t.Error("expected empty number set to allow")
	}
	if !g.IsGroupAllowed("any-group") {
		t.Error("expected empty group set to allow")
	}
}

func TestNumberAllowlist(t *testing.T) {
	g := New("messaging", Config{
		AllowedNumbers:     []string{"+15551234567"},
		RateLimitPerMinute: 60,
	}, nil)

	if d := g.Check("+15551234567", ""); !d.Allowed {
		t.Errorf("expected listed number allowed, got %q", d.Reason)
	}
	d := g.Check("+15559999999", "")
	if d.Allowed {
		t.Fatal("expected unlisted number rejected")
	}
	if d.Reason != "Number not in allowlist" {
		t.Errorf("unexpected reason %q", d.Reason)
	}
}

func TestGroupAllowlist(t *testing.T) {
	g := New("messaging", Config{
		AllowedGroups:      []string{"group-a"},
		RateLimitPerMinute: 60,
	}, nil)

	if d := g.Check("sender", "group-a"); !d.Allowed {
		t.Errorf("expected listed group allowed, got %q", d.Reason)
	}
	d := g.Check("sender", "group-b")
	if d.Allowed {
		t.Fatal("expected unlisted group rejected")
	}
	if d.Reason != "Group not in allowlist" {
		t.Errorf("unexpected reason %q", d.Reason)
	}

	// Direct message (no group) skips the group dimension.
	if d := g.Check("sender", ""); !d.Allowed {
		t.Errorf("expected direct message allowed, got %q", d.Reason)
	}
}

// Group rejection must win over sender rejection so a bad group cannot
// be used to probe the sender allowlist.
func TestGroupCheckedBeforeSender(t *testing.T) {
	g := New("messaging", Config{
		AllowedNumbers:     []string{"+15551234567"},
		AllowedGroups:      []string{"group-a"},
		RateLimitPerMinute: 60,
	}, nil)

	d := g.Check("+15559999999", "group-b")
	if d.Allowed {
		t.Fatal("expected rejection")
	}
	if d.Reason != "Group not in allowlist" {
		t.Errorf("expected group reason first, got %q", d.Reason)
	}
}

func TestRateLimit(t *testing.T) {
	g := New("messaging", Config{RateLimitPerMinute: 2}, nil)

	for i := 0; i < 2; i++ {
		if d := g.Check("sender", ""); !d.Allowed {
			t.Fatalf("expected message %d allowed, got %q", i+1, d.Reason)
		}
	}
	d := g.Check("sender", "")
	if d.Allowed {
		t.Fatal("expected third message rate limited")
	}
	if d.Reason != "Rate limited" {
		t.Errorf("unexpected reason %q", d.Reason)
	}

	// Other senders keep their own budget.
	if d := g.Check("other", ""); !d.Allowed {
		t.Errorf("expected other sender unaffected, got %q", d.Reason)
	}
}

func TestReloadReplacesSets(t *testing.T) {
	g := New("messaging", Config{
		AllowedNumbers:     []string{"+15551234567"},
		RateLimitPerMinute: 60,
	}, nil)

	if d := g.Check("+15559999999", ""); d.Allowed {
		t.Fatal("expected rejection before reload")
	}

	g.Reload(Config{
		AllowedNumbers:     []string{"+15559999999"},
		RateLimitPerMinute: 60,
	})

	if d := g.Check("+15559999999", ""); !d.Allowed {
		t.Errorf("expected newly listed number allowed, got %q", d.Reason)
	}
	if d := g.Check("+15551234567", ""); d.Allowed {
		t.Error("expected removed number rejected")
	}
}

func TestReloadKeepsRateLimiterState(t *testing.T) {
	g := New("messaging", Config{RateLimitPerMinute: 1}, nil)
	if d := g.Check("sender", ""); !d.Allowed {
		t.Fatal("expected first message allowed")
	}

	g.Reload(Config{RateLimitPerMinute: 1})

	if d := g.Check("sender", ""); d.Allowed {
		t.Error("expected limiter state to survive reload")
	}
}
