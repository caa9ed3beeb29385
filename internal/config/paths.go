// Package config provides configuration management for utmnet.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds platform-specific directory paths for utmnet.
type Paths struct {
	// ConfigDir is the directory for configuration files.
	// macOS: ~/Library/Application Support/utmnet
	// Linux: ~/.config/utmnet (or XDG_CONFIG_HOME)
	ConfigDir string

	// DataDir holds the automation scripts and metrics output.
	// All platforms: ~/.utmnet
	DataDir string

	// ConfigFile is the path to the main config file.
	ConfigFile string
}

// GetPaths returns platform-aware paths for utmnet.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	p := &Paths{}
	p.DataDir = filepath.Join(home, ".utmnet")

	switch runtime.GOOS {
	case "darwin":
		p.ConfigDir = filepath.Join(home, "Library", "Application Support", "utmnet")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			p.ConfigDir = filepath.Join(xdgConfig, "utmnet")
		} else {
			p.ConfigDir = filepath.Join(home, ".config", "utmnet")
		}
	}

	p.ConfigFile = filepath.Join(p.DataDir, "config.yaml")

	return p, nil
}

// ScriptsDir is the default location of the UTM automation scripts.
func (p *Paths) ScriptsDir() string {
	return filepath.Join(p.DataDir, "scripts")
}

// EnsureDirectories creates the config and data directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.ConfigDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(p.DataDir, 0755); err != nil {
		return err
	}
	return nil
}
