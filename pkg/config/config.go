// Package config loads and saves the sidebar preferences.
//
// The file lives under the XDG config directory:
//
//	~/.config/tree-tabs/config.yaml
//
// and the tree document defaults to the XDG state directory next to it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

const appDir = "tree-tabs"

// Config is the top-level preferences document.
type Config struct {
	// PromoteChildrenOnClose keeps a closed tab's children in the tree by
	// reattaching them to its parent. Off means closing a tab drops its
	// subtree.
	PromoteChildrenOnClose *bool `yaml:"promote_children_on_close,omitempty"`
	// AutoCollapseSiblings gives accordion behavior: expanding a branch
	// collapses its sibling branches.
	AutoCollapseSiblings bool `yaml:"auto_collapse_siblings,omitempty"`
	// StorePath overrides where the tree document is kept. Empty means the
	// default state directory.
	StorePath string `yaml:"store_path,omitempty"`
}

// Default returns the out-of-the-box configuration.
func Default() Config {
	promote := true
	return Config{PromoteChildrenOnClose: &promote}
}

// Policies converts the preference values into mutation-engine policies.
func (c Config) Policies() tabtree.Policies {
	p := tabtree.DefaultPolicies()
	if c.PromoteChildrenOnClose != nil {
		p.PromoteChildrenOnClose = *c.PromoteChildrenOnClose
	}
	p.AutoCollapseSiblings = c.AutoCollapseSiblings
	return p
}

// Dir returns the config directory.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDir
	}
	return filepath.Join(home, ".config", appDir)
}

// StateDir returns the state directory holding the tree document.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDir
	}
	return filepath.Join(home, ".local", "state", appDir)
}

// TreePath returns the path of the tree document, honoring the override.
func (c Config) TreePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	return filepath.Join(StateDir(), "tree-tabs.json")
}

// Load reads the config file. A missing file yields defaults; a malformed
// one is an error so a typo does not silently reset preferences.
func Load() (Config, error) {
	return LoadFrom(filepath.Join(Dir(), "config.yaml"))
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func Save(cfg Config) error {
	return SaveTo(filepath.Join(Dir(), "config.yaml"), cfg)
}

// SaveTo writes a config file to an explicit path.
func SaveTo(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
