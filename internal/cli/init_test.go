package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phazurlabs/openclaw-fortress/internal/config"
)

func TestRunInit(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	initForce = false

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	dir := filepath.Join(tmpDir, ".openclaw")
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("state dir not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("state dir permissions %04o are too open", perm)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
	for _, section := range []string{"gateway:", "llm:", "security:", "channels:", "retention:"} {
		if !strings.Contains(string(data), section) {
			t.Errorf("config.yaml missing section %q", section)
		}
	}

	// The generated file must load and validate.
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Gateway.Token == "" || cfg.Security.MasterKey == "" {
		t.Error("expected generated secrets in config")
	}
	if cfg.Gateway.Token == cfg.Security.MasterKey {
		t.Error("gateway token and master key must differ")
	}
}

func TestRunInitNoOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	initForce = false

	dir := filepath.Join(tmpDir, ".openclaw")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	sentinel := "# sentinel content\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sentinel), 0600); err != nil {
		t.Fatal(err)
	}

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != sentinel {
		t.Error("config.yaml was overwritten without --force")
	}
}

func TestRunInitForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	dir := filepath.Join(tmpDir, ".openclaw")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	sentinel := "# sentinel content\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sentinel), 0600); err != nil {
		t.Fatal(err)
	}

	initForce = true
	defer func() { initForce = false }()

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) == sentinel {
		t.Error("config.yaml was not overwritten with --force")
	}
}

func TestWriteIfMissing(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.txt")

	initForce = false
	wrote, err := writeIfMissing(path, "hello")
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if !wrote {
		t.Error("first write should report true")
	}

	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if wrote {
		t.Error("second write should skip without force")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("content changed without force: %q", string(data))
	}

	initForce = true
	defer func() { initForce = false }()
	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("force write failed: %v", err)
	}
	if !wrote {
		t.Error("force write should report true")
	}
	data, _ = os.ReadFile(path)
	if string(data) != "world" {
		t.Errorf("force write did not overwrite: %q", string(data))
	}
}
