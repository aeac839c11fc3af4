package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, root, body string) string {
	t.Helper()
	dir, err := EnsureDir(root)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "database: shop.db\n")

	// Create a subdirectory
	sub := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	// Should find the config from the subdirectory
	found, err := FindConfig(sub)
	if err != nil {
		t.Fatalf("expected to find config: %v", err)
	}
	if found != want {
		t.Errorf("expected %q, got %q", want, found)
	}
}

func TestFindConfig_IgnoresBareDirectory(t *testing.T) {
	root := t.TempDir()
	if _, err := EnsureDir(root); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfig(root)
	// A config further up (outside the temp dir) is tolerated; the bare
	// .kanvas directory itself must not match.
	if err == nil && filepath.Dir(filepath.Dir(found)) == root {
		t.Errorf("bare %s directory should not count as a config, got %q", DirName, found)
	}
}

func TestResolve_EnvOverride(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "listings:\n  page_size: 6\n")
	t.Setenv(EnvDir, root)

	cfg, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Root() != root {
		t.Errorf("expected root %q, got %q", root, cfg.Root())
	}
	if cfg.Listings.PageSize != 6 {
		t.Errorf("expected page size 6, got %d", cfg.Listings.PageSize)
	}
}

func TestResolve_EnvOverrideWithoutFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv(EnvDir, root)

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.DatabasePath() != filepath.Join(root, DirName, "kanvas.db") {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestResolve_Discovered(t *testing.T) {
	t.Setenv(EnvDir, "")
	root := t.TempDir()
	writeConfig(t, root, "database: data/shop.db\n")
	sub := filepath.Join(root, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Resolve(sub)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.DatabasePath() != filepath.Join(root, "data", "shop.db") {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
}
