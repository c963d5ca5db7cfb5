// Package config loads the optional glox CLI configuration from a TOML
// file. A command-line flag turns its option on even when the file
// leaves it off; a flag cannot turn off an option the file enables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds the CLI configuration.
type Config struct {
	// Execution settings
	Execution struct {
		// Trace enables the per-instruction execution trace.
		Trace bool `toml:"trace"`
		// DisassembleOnLoad prints the chunk listing before running.
		DisassembleOnLoad bool `toml:"disassemble_on_load"`
	} `toml:"execution"`

	// REPL settings
	Repl struct {
		Prompt      string `toml:"prompt"`
		HistoryFile string `toml:"history_file"`
	} `toml:"repl"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Execution.Trace = false
	cfg.Execution.DisassembleOnLoad = false

	cfg.Repl.Prompt = ">>> "
	cfg.Repl.HistoryFile = defaultHistoryPath()

	return cfg
}

func defaultHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".glox_history"
	}
	return filepath.Join(homeDir, ".glox_history")
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "glox")

	default:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "glox")
	}

	return filepath.Join(configDir, "config.toml")
}

// Load reads the config file from the default location. A missing file
// is not an error; the defaults are returned.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads a config file from an explicit path, merging it over
// the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration as TOML to the given path, creating
// parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
