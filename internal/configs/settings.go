package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the per-user locations lockbox reads and writes outside of
// the repositories themselves.
type Paths struct {
	ConfigDir  string
	ConfigFile string
	DataDir    string
	AuditFile  string
}

// ResolvePaths computes Paths from the environment.
//
// LOCKBOX_CONFIG overrides the config file location. The data directory
// follows XDG_DATA_HOME and falls back to ~/.local/share.
func ResolvePaths() (*Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error getting config directory: %w", err)
	}
	configDir = filepath.Join(configDir, "lockbox")

	configFile := filepath.Join(configDir, "config.toml")
	if override := os.Getenv("LOCKBOX_CONFIG"); override != "" {
		configFile = override
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("error getting home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	dataDir = filepath.Join(dataDir, "lockbox")

	return &Paths{
		ConfigDir:  configDir,
		ConfigFile: configFile,
		DataDir:    dataDir,
		AuditFile:  filepath.Join(dataDir, "audit.jsonl"),
	}, nil
}
