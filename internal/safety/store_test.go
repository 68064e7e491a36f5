package safety

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Load(filepath.Join(t.TempDir(), "safety.json"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return st
}

func TestObserveFirstContactTrusted(t *testing.T) {
	st := newTestStore(t)
	rec, err := st.Observe("+15551234567", "fp-aaaa")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if rec.Fingerprint != "fp-aaaa" {
		t.Errorf("expected fingerprint recorded, got %q", rec.Fingerprint)
	}
	if rec.Suspended || rec.Verified {
		t.Error("expected first contact neither suspended nor verified")
	}
	if rec.FirstSeen == 0 || rec.LastSeen == 0 {
		t.Error("expected timestamps set")
	}
}

func TestObserveSameFingerprintKeepsTrust(t *testing.T) {
	st := newTestStore(t)
	st.Observe("contact", "fp-aaaa")
	st.MarkVerified("contact")

	rec, err := st.Observe("contact", "fp-aaaa")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if rec.Suspended {
		t.Error("expected unchanged fingerprint not suspended")
	}
	if !rec.Verified {
		t.Error("expected verification preserved")
	}
}

func TestObserveChangedFingerprintSuspends(t *testing.T) {
	st := newTestStore(t)
	st.Observe("contact", "fp-aaaa")
	st.MarkVerified("contact")

	rec, err := st.Observe("contact", "fp-bbbb")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if !rec.Suspended {
		t.Error("expected suspension on fingerprint change")
	}
	if rec.Verified {
		t.Error("expected verification dropped")
	}
	if rec.Fingerprint != "fp-bbbb" {
		t.Errorf("expected new fingerprint stored, got %q", rec.Fingerprint)
	}
	if !st.IsSuspended("contact") {
		t.Error("expected IsSuspended true")
	}
}

func TestObserveEmptyFingerprintOnlyBumps(t *testing.T) {
	st := newTestStore(t)
	st.Observe("contact", "fp-aaaa")

	rec, err := st.Observe("contact", "")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if rec.Fingerprint != "fp-aaaa" {
		t.Error("expected fingerprint unchanged")
	}
	if rec.Suspended {
		t.Error("expected no suspension for empty fingerprint")
	}
}

func TestClearSuspension(t *testing.T) {
	st := newTestStore(t)
	st.Observe("contact", "fp-aaaa")
	st.Suspend("contact")
	if !st.IsSuspended("contact") {
		t.Fatal("expected suspended")
	}

	if err := st.ClearSuspension("contact"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if st.IsSuspended("contact") {
		t.Error("expected suspension lifted")
	}

	if err := st.ClearSuspension("unknown"); err == nil {
		t.Error("expected error for unknown contact")
	}
}

func TestSuspendUnknownContactCreatesRecord(t *testing.T) {
	st := newTestStore(t)
	if err := st.Suspend("new-contact"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if !st.IsSuspended("new-contact") {
		t.Error("expected new record suspended")
	}
}

func TestPersistenceAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safety.json")

	st, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	st.Observe("contact", "fp-aaaa")
	st.Suspend("contact")

	st2, err := Load(path, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !st2.IsSuspended("contact") {
		t.Error("expected suspension to survive reload")
	}
	rec := st2.Get("contact")
	if rec == nil || rec.Fingerprint != "fp-aaaa" {
		t.Errorf("expected record restored, got %+v", rec)
	}
}

func TestErase(t *testing.T) {
	st := newTestStore(t)
	st.Observe("contact", "fp-aaaa")
	if err := st.Erase("contact"); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if st.Get("contact") != nil {
		t.Error("expected record removed")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	st := newTestStore(t)
	st.Observe("contact", "fp-aaaa")

	rec := st.Get("contact")
	rec.Suspended = true

	if st.IsSuspended("contact") {
		t.Error("expected mutation of copy not to affect store")
	}
}
