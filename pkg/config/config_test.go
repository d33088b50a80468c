package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPolicies(t *testing.T) {
	p := Default().Policies()
	if !p.PromoteChildrenOnClose {
		t.Error("promote-on-close should default to true")
	}
	if p.AutoCollapseSiblings {
		t.Error("accordion should default to false")
	}
}

func TestLoadFromMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if !cfg.Policies().PromoteChildrenOnClose {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadFromMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n\t bad"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("malformed config should error, not silently reset")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	promote := false
	cfg := Config{
		PromoteChildrenOnClose: &promote,
		AutoCollapseSiblings:   true,
		StorePath:              "/tmp/custom.json",
	}
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	back, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	p := back.Policies()
	if p.PromoteChildrenOnClose {
		t.Error("promote override lost")
	}
	if !p.AutoCollapseSiblings {
		t.Error("accordion setting lost")
	}
	if back.TreePath() != "/tmp/custom.json" {
		t.Errorf("TreePath = %q", back.TreePath())
	}
}

func TestTreePathDefault(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/x/state")
	if got := Default().TreePath(); got != "/x/state/tree-tabs/tree-tabs.json" {
		t.Errorf("TreePath = %q", got)
	}
}

func TestDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/x/cfg")
	if got := Dir(); got != "/x/cfg/tree-tabs" {
		t.Errorf("Dir = %q", got)
	}
}
