// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Annotate AnnotateConfig `toml:"annotate"`
	Export   ExportConfig   `toml:"export"`
	View     ViewConfig     `toml:"view"`
	Log      LogConfig      `toml:"log"`
}

// CatalogConfig maps where recordings are listed and loaded from.
type CatalogConfig struct {
	URL *string `toml:"url"`
	Dir *string `toml:"dir"`
}

// AnnotateConfig maps annotation settings.
type AnnotateConfig struct {
	Artifacts []string `toml:"artifacts"`
}

// ExportConfig maps export settings.
type ExportConfig struct {
	Path *string `toml:"path"`
}

// ViewConfig maps plot settings.
type ViewConfig struct {
	DetailHeight   *int `toml:"detail-height"`
	OverviewHeight *int `toml:"overview-height"`
	SmoothWindow   *int `toml:"smooth-window"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	Path  *string `toml:"path"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
