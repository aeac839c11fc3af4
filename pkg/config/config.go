// Package config loads the kanvas configuration (.kanvas/config.yaml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

// DirName is the per-project configuration directory.
const DirName = ".kanvas"

// FileName is the configuration file inside DirName.
const FileName = "config.yaml"

// EnvDir overrides discovery with an explicit project directory.
const EnvDir = "KANVAS_DIR"

// Config is the kanvas configuration file.
type Config struct {
	// Database is the SQLite file, relative to the project root unless absolute
	// (default: .kanvas/kanvas.db)
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	Listings ListingsConfig `yaml:"listings,omitempty" json:"listings,omitempty"`
	Watch    WatchConfig    `yaml:"watch,omitempty" json:"watch,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty" json:"log,omitempty"`

	// TreeState is where the filter tree remembers which categories are open
	// (default: .kanvas/tree-state.json)
	TreeState string `yaml:"tree_state,omitempty" json:"tree_state,omitempty"`

	// InitialSelection lists the category ids selected at startup; those
	// categories also start expanded.
	InitialSelection []int `yaml:"initial_selection,omitempty" json:"initial_selection,omitempty"`

	// root is the directory containing DirName; relative paths resolve
	// against it.
	root string
}

// ListingsConfig controls the listings pane.
type ListingsConfig struct {
	// PageSize is the number of NFTs per page (default: 12)
	PageSize int `yaml:"page_size,omitempty" json:"page_size,omitempty"`

	// Sort is the initial order (default: newest)
	Sort model.ListingSort `yaml:"sort,omitempty" json:"sort,omitempty"`
}

// WatchConfig controls reloading the catalog when the database changes.
type WatchConfig struct {
	// Enabled turns the watcher on (default: true)
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Debounce coalesces bursts of writes (default: 200ms)
	Debounce time.Duration `yaml:"debounce,omitempty" json:"debounce,omitempty"`
}

// LogConfig controls the log file.
type LogConfig struct {
	// File receives log output; empty discards it (the TUI owns stdout)
	File string `yaml:"file,omitempty" json:"file,omitempty"`

	// Trace enables JSON trace events in the log file
	Trace bool `yaml:"trace,omitempty" json:"trace,omitempty"`
}

// DefaultDebounce is the watcher debounce used when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// Default returns the configuration used when no file exists, rooted at root.
func Default(root string) *Config {
	c := &Config{root: root}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = filepath.Join(DirName, "kanvas.db")
	}
	if c.TreeState == "" {
		c.TreeState = filepath.Join(DirName, "tree-state.json")
	}
	if c.Listings.PageSize == 0 {
		c.Listings.PageSize = model.DefaultPageSize
	}
	if c.Listings.Sort == "" {
		c.Listings.Sort = model.SortNewest
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = DefaultDebounce
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Listings.PageSize < 1 || c.Listings.PageSize > 100 {
		return fmt.Errorf("listings.page_size must be between 1 and 100, got %d", c.Listings.PageSize)
	}
	if !c.Listings.Sort.IsValid() {
		return fmt.Errorf("listings.sort: unknown order %q", c.Listings.Sort)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce cannot be negative")
	}
	seen := make(map[int]bool, len(c.InitialSelection))
	for _, id := range c.InitialSelection {
		if id <= 0 {
			return fmt.Errorf("initial_selection: category id must be positive, got %d", id)
		}
		if seen[id] {
			return fmt.Errorf("initial_selection: duplicate category id %d", id)
		}
		seen[id] = true
	}
	return nil
}

// WatchEnabled returns whether the database watcher runs.
func (c *Config) WatchEnabled() bool {
	if c.Watch.Enabled == nil {
		return true
	}
	return *c.Watch.Enabled
}

// Root returns the project root the configuration was loaded for.
func (c *Config) Root() string {
	return c.root
}

// DatabasePath returns the absolute database path.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Database)
}

// TreeStatePath returns the absolute tree state path.
func (c *Config) TreeStatePath() string {
	return c.resolve(c.TreeState)
}

// LogPath returns the absolute log file path, or "" when logging is off.
func (c *Config) LogPath() string {
	if c.Log.File == "" {
		return ""
	}
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(p string) string {
	p = expandHome(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.root, p)
}

// Load reads a configuration file. The project root is the parent of the
// directory holding the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.root = filepath.Dir(filepath.Dir(path))
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve finds and loads the configuration for dir. KANVAS_DIR wins over
// discovery; a project without a config file gets the defaults rooted at
// dir.
func Resolve(dir string) (*Config, error) {
	if env := os.Getenv(EnvDir); env != "" {
		dir = expandHome(env)
		path := filepath.Join(dir, DirName, FileName)
		cfg, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			return Default(dir), nil
		}
		return cfg, err
	}

	path, err := FindConfig(dir)
	if errors.Is(err, os.ErrNotExist) {
		return Default(dir), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
