// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archconfig loads the optional TOML defaults file that
// backs every CLI flag's default value. Precedence is CLI flag >
// config file > the built-in defaults returned by [Default]. No
// environment variable is ever consulted — the config path is always
// the single fixed location [Path] resolves.
package archconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config mirrors the TOML schema's six sections.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Create   CreateConfig   `toml:"create"`
	Restore  RestoreConfig  `toml:"restore"`
	Update   UpdateConfig   `toml:"update"`
	Output   OutputConfig   `toml:"output"`
	Prune    PruneConfig    `toml:"prune"`
}

// DefaultsConfig holds the settings most sub-commands fall back to.
type DefaultsConfig struct {
	Compress   string  `toml:"compress"`
	ZstdLevel  int     `toml:"zstd_level"`
	SplitGB    float64 `toml:"split_gb"`
	SplitFiles uint64  `toml:"split_files"`
	Threads    uint    `toml:"threads"`
	Color      bool    `toml:"color"`
}

// CreateConfig holds create-specific defaults.
type CreateConfig struct {
	Exclude []string `toml:"exclude"`
	Dedup   bool     `toml:"dedup"`
	Notes   string   `toml:"notes"`
}

// RestoreConfig holds restore-specific defaults.
type RestoreConfig struct {
	Force              bool `toml:"force"`
	RestorePermissions bool `toml:"restore_permissions"`
}

// UpdateConfig holds update-specific defaults.
type UpdateConfig struct {
	ChecksumDiff bool `toml:"checksum_diff"`
}

// OutputConfig holds output-multiplexer defaults.
type OutputConfig struct {
	JSON  bool `toml:"json"`
	Quiet bool `toml:"quiet"`
}

// PruneConfig holds prune-specific defaults.
type PruneConfig struct {
	KeepLast   uint `toml:"keep_last"`
	MaxAgeDays uint `toml:"max_age_days"`
}

// Default returns the built-in configuration used when no config
// file exists, and as the base every loaded file is merged on top of.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Compress:   "zstd",
			ZstdLevel:  3,
			SplitGB:    4.0,
			SplitFiles: 0,
			Threads:    4,
			Color:      true,
		},
		Create: CreateConfig{
			Exclude: []string{".DS_Store", "Thumbs.db", "*.tmp", "*.swp"},
			Dedup:   false,
			Notes:   "",
		},
		Restore: RestoreConfig{
			Force:              false,
			RestorePermissions: true,
		},
		Update: UpdateConfig{
			ChecksumDiff: true,
		},
		Output: OutputConfig{
			JSON:  false,
			Quiet: false,
		},
		Prune: PruneConfig{
			KeepLast:   3,
			MaxAgeDays: 30,
		},
	}
}

// Path returns the single fixed location the config file is read
// from and written to: $XDG_CONFIG_HOME/archivum/config.toml on
// POSIX, %APPDATA%\archivum\config.toml on Windows, both via
// [os.UserConfigDir].
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config directory: %w", err)
	}
	return filepath.Join(dir, "archivum", "config.toml"), nil
}

// Load reads the config file at [Path], merging it on top of
// [Default]. A missing file is not an error — [Default] is returned
// unchanged.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to [Path], creating its parent directory if
// necessary.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

var validCompressions = map[string]bool{"none": true, "gzip": true, "bzip2": true, "lz4": true, "zstd": true}

// Validate checks cfg for values the CLI and lib/arch* packages would
// otherwise reject deep inside an operation.
func (c *Config) Validate() error {
	var errs []error

	if !validCompressions[c.Defaults.Compress] {
		errs = append(errs, fmt.Errorf("defaults.compress must be one of none|gzip|bzip2|lz4|zstd, got %q", c.Defaults.Compress))
	}
	if c.Defaults.ZstdLevel < 1 || c.Defaults.ZstdLevel > 22 {
		errs = append(errs, fmt.Errorf("defaults.zstd_level must be between 1 and 22, got %d", c.Defaults.ZstdLevel))
	}
	if c.Defaults.SplitGB < 0 {
		errs = append(errs, fmt.Errorf("defaults.split_gb must not be negative, got %v", c.Defaults.SplitGB))
	}
	if c.Defaults.Threads == 0 {
		errs = append(errs, errors.New("defaults.threads must be at least 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
