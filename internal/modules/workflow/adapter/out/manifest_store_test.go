package out

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileManifestStoreLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "drivers"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `drivers:
  - name: scripted
    binary: bin/driver-scripted
    enabled: true
    env:
      SCRIPT: ok
  - name: browser
    binary: /opt/lingobot/driver-browser
    enabled: false
`
	if err := os.WriteFile(filepath.Join(dir, "drivers", "drivers.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	store := NewFileManifestStore(dir)
	manifests, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("expected 2 manifests, got %d", len(manifests))
	}
	if want := filepath.Join(dir, "bin", "driver-scripted"); manifests[0].Binary != want {
		t.Fatalf("relative binary not resolved: %q", manifests[0].Binary)
	}
	if manifests[0].Env["SCRIPT"] != "ok" {
		t.Fatalf("env not decoded: %+v", manifests[0].Env)
	}
	if manifests[1].Binary != "/opt/lingobot/driver-browser" {
		t.Fatalf("absolute binary rewritten: %q", manifests[1].Binary)
	}
	if manifests[1].Enabled {
		t.Fatal("disabled driver decoded as enabled")
	}
}

func TestFileManifestStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	store := NewFileManifestStore(t.TempDir())
	manifests, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(manifests) != 0 {
		t.Fatalf("expected empty list, got %d", len(manifests))
	}
}

func TestFileManifestStoreRejectsMalformedYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "drivers"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "drivers", "drivers.yaml"), []byte("drivers: ["), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, err := NewFileManifestStore(dir).Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
