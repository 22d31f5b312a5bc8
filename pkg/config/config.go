// Package config handles loading and saving chipview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/chipview/config.yaml
//   - Data:    ~/.local/share/chipview/ (dataset snapshots)
//   - State:   ~/.local/state/chipview/ (recent filters, view state cache)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig points chipview at a contracts data-explorer backend.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	// EstimateTimeout bounds estimate/search calls. Export transfers have no
	// overall timeout; they are bounded by cancellation only.
	EstimateTimeout time.Duration `yaml:"estimate_timeout,omitempty"`
	HeaderTimeout   time.Duration `yaml:"header_timeout,omitempty"`
}

// ExportConfig holds export preferences.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir,omitempty"` // where CSVs land (default: cwd)
	// PageSize is the chip-search/aggregates page size used when
	// materializing resident datasets. Matches the backend's own export
	// generator page size by default.
	PageSize int `yaml:"page_size,omitempty"`
	// BytesPerRow is the heuristic row width used when no authoritative
	// size is available for a client-side estimate.
	BytesPerRow int `yaml:"bytes_per_row,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	DefaultDataset string `yaml:"default_dataset,omitempty"` // contracts, aggregated
	Headless       bool   `yaml:"headless,omitempty"`        // skip the TUI, wizard-only
}

// Config is the top-level configuration for chipview.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Export ExportConfig `yaml:"export,omitempty"`
	UI     UIConfig     `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:         "http://localhost:8000",
			EstimateTimeout: 15 * time.Second,
			HeaderTimeout:   30 * time.Second,
		},
		Export: ExportConfig{
			PageSize:    1000,
			BytesPerRow: 100,
		},
		UI: UIConfig{
			DefaultDataset: "contracts",
		},
	}
}

// ConfigDir returns the XDG config directory for chipview.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "chipview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "chipview")
}

// DataDir returns the XDG data directory for chipview.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "chipview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "chipview")
}

// StateDir returns the XDG state directory for chipview.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "chipview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "chipview")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	cfg.Export.OutputDir = expandHome(cfg.Export.OutputDir)

	return cfg, nil
}

// applyDefaults re-fills zero values so a sparse config file still works.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = def.Server.BaseURL
	}
	if c.Server.EstimateTimeout == 0 {
		c.Server.EstimateTimeout = def.Server.EstimateTimeout
	}
	if c.Server.HeaderTimeout == 0 {
		c.Server.HeaderTimeout = def.Server.HeaderTimeout
	}
	if c.Export.PageSize <= 0 {
		c.Export.PageSize = def.Export.PageSize
	}
	if c.Export.BytesPerRow <= 0 {
		c.Export.BytesPerRow = def.Export.BytesPerRow
	}
	if c.UI.DefaultDataset == "" {
		c.UI.DefaultDataset = def.UI.DefaultDataset
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SnapshotPath returns the path of the resident-dataset snapshot database.
func SnapshotPath() string {
	dir := DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "snapshot.db")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
