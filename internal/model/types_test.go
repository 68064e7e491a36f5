package model

import "testing"

func TestChannelValid(t *testing.T) {
	for _, c := range []Channel{ChannelMessaging, ChannelTeamChat, ChannelWeb} {
		if !c.Valid() {
			t.Errorf("expected %s valid", c)
		}
	}
	for _, c := range []Channel{"", "sms", "MESSAGING"} {
		if c.Valid() {
			t.Errorf("expected %q invalid", c)
		}
	}
}

func TestGateResultConstructors(t *testing.T) {
	ok := Allowed("hi", "trace-1")
	if !ok.Allowed || ok.Reply != "hi" || ok.TraceID != "trace-1" {
		t.Errorf("unexpected allowed result %+v", ok)
	}

	rej := Rejected("allowlist", "Number not in allowlist", true)
	if rej.Allowed {
		t.Error("expected rejection")
	}
	if rej.Stage != "allowlist" || rej.Reason != "Number not in allowlist" || !rej.Silent {
		t.Errorf("unexpected rejection %+v", rej)
	}
}
