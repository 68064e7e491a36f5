package skills

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSkillFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skill.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func echoHandler(_ context.Context, args map[string]any) (string, error) {
	if v, ok := args["text"].(string); ok {
		return v, nil
	}
	return "ok", nil
}

func TestRegisterAndInvoke(t *testing.T) {
	r := NewRegistry(nil)
	path := writeSkillFile(t, "name: echo\n")

	if err := r.Register("echo", path, echoHandler); err != nil {
		t.Fatalf("register: %v", err)
	}

	out, err := r.Invoke(context.Background(), "echo", map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != "hello" {
		t.Errorf("expected hello, got %q", out)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	path := writeSkillFile(t, "name: echo\n")
	if err := r.Register("echo", path, echoHandler); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("echo", path, echoHandler); err == nil {
		t.Error("expected duplicate registration rejected")
	}
}

func TestRegisterMissingFile(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Register("ghost", filepath.Join(t.TempDir(), "absent.yaml"), echoHandler)
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestInvokeUnknown(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Invoke(context.Background(), "missing", nil)
	if !errors.Is(err, ErrUnknownSkill) {
		t.Errorf("expected ErrUnknownSkill, got %v", err)
	}
}

func TestInvokeDetectsTamper(t *testing.T) {
	r := NewRegistry(nil)
	path := writeSkillFile(t, "name: echo\n")
	if err := r.Register("echo", path, echoHandler); err != nil {
		t.Fatal(err)
	}

	// Modify the definition after registration.
	if err := os.WriteFile(path, []byte("name: echo\nextra: injected\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := r.Invoke(context.Background(), "echo", nil)
	if !errors.Is(err, ErrIntegrity) {
		t.Errorf("expected ErrIntegrity, got %v", err)
	}
}

func TestList(t *testing.T) {
	r := NewRegistry(nil)
	if len(r.List()) != 0 {
		t.Error("expected empty registry")
	}
	path := writeSkillFile(t, "name: a\n")
	r.Register("a", path, echoHandler)
	names := r.List()
	if len(names) != 1 || names[0] != "a" {
		t.Errorf("unexpected names %v", names)
	}
}
