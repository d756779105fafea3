package configs

import (
	"errors"
	"fmt"
	"os"
	"time"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/utils"
)

// Backend names accepted in the backend key.
const (
	BackendHybrid = "hybrid"
	BackendLegacy = "legacy"
)

// MinPasswordFloor is the lowest min_password_length a config may set.
const MinPasswordFloor = 8

// Duration is a time.Duration that reads and writes TOML strings like "30s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Config struct {
	// Backend selects where plaintext lives while a repository is open:
	// "hybrid" extracts to a private temp directory, "legacy" keeps it in memory.
	Backend string `toml:"backend"`

	// TempRoot is the parent of extraction workspaces and staged copies.
	// Empty means os.TempDir().
	TempRoot string `toml:"temp_root"`

	OperationTimeout  Duration `toml:"operation_timeout"`
	LockTimeout       Duration `toml:"lock_timeout"`
	MinPasswordLength int      `toml:"min_password_length"`

	Audit           bool   `toml:"audit"`
	MetricsTextfile string `toml:"metrics_textfile"`

	Backup BackupConfig `toml:"backup"`
	Argon2 Argon2Config `toml:"argon2"`
}

type BackupConfig struct {
	Enabled bool `toml:"enabled"`
	Count   int  `toml:"count"`
	// Dir defaults to the archive's own directory.
	Dir string `toml:"dir"`
}

// Argon2Config sets the key derivation cost used when an archive is written.
// Archives record their own parameters, so changing these only affects new saves.
type Argon2Config struct {
	Time      uint32 `toml:"time"`
	MemoryKiB uint32 `toml:"memory_kib"`
	Threads   uint8  `toml:"threads"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Backend:           BackendHybrid,
		OperationTimeout:  Duration{30 * time.Second},
		LockTimeout:       Duration{30 * time.Second},
		MinPasswordLength: MinPasswordFloor,
		Audit:             true,
		Backup: BackupConfig{
			Enabled: true,
			Count:   3,
		},
		Argon2: Argon2Config{
			Time:      3,
			MemoryKiB: 64 * 1024,
			Threads:   4,
		},
	}
}

// Load reads the config file at path over the defaults. A missing file is
// not an error. Unknown keys are returned so the caller can warn about typos.
func Load(path string) (*Config, []string, error) {
	cfg := Default()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil, nil
	}

	unknown, err := LoadTOML(path, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if cfg.TempRoot, err = utils.ExpandPath(cfg.TempRoot); err != nil {
		return nil, nil, err
	}
	if cfg.Backup.Dir, err = utils.ExpandPath(cfg.Backup.Dir); err != nil {
		return nil, nil, err
	}
	if cfg.MetricsTextfile, err = utils.ExpandPath(cfg.MetricsTextfile); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, unknown, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := SaveTOML(path, cfg); err != nil {
		return fmt.Errorf("failed to save config %s: %w", path, err)
	}
	return nil
}

// Validate checks the config for values the repository layer cannot honour.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendHybrid, BackendLegacy:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", kerrors.ErrUnsupportedBackend, c.Backend, BackendHybrid, BackendLegacy)
	}

	if c.MinPasswordLength < MinPasswordFloor {
		return fmt.Errorf("min_password_length must be at least %d, got %d", MinPasswordFloor, c.MinPasswordLength)
	}
	if c.OperationTimeout.Duration <= 0 {
		return fmt.Errorf("operation_timeout must be positive, got %s", c.OperationTimeout)
	}
	if c.LockTimeout.Duration <= 0 {
		return fmt.Errorf("lock_timeout must be positive, got %s", c.LockTimeout)
	}
	if c.Backup.Count < 0 {
		return fmt.Errorf("backup.count must not be negative, got %d", c.Backup.Count)
	}
	if c.Argon2.Time < 1 || c.Argon2.Threads < 1 {
		return fmt.Errorf("argon2.time and argon2.threads must be at least 1")
	}
	if c.Argon2.MemoryKiB < 8*uint32(c.Argon2.Threads) {
		return fmt.Errorf("argon2.memory_kib must be at least 8 per thread, got %d", c.Argon2.MemoryKiB)
	}
	return nil
}
