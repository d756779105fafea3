package workflows

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/lockbox/internal/audit"
	"github.com/PolarWolf314/lockbox/internal/configs"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/metrics"
	"github.com/PolarWolf314/lockbox/internal/registry"
	"github.com/PolarWolf314/lockbox/internal/repository"
)

// Env is what every workflow needs: the loaded configuration and the
// repository manager built from it.
type Env struct {
	Paths   *configs.Paths
	Config  *configs.Config
	Manager *repository.Manager
	Audit   *audit.Trail
	Metrics *metrics.Recorder
	Log     logger.Logger
}

// LoadEnv reads the user configuration and builds the repository manager.
// Sessions are registered in the process-wide slot so a signal handler can
// close them.
func LoadEnv(log logger.Logger) (*Env, error) {
	paths, err := configs.ResolvePaths()
	if err != nil {
		return nil, err
	}

	cfg, unknown, err := configs.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	for _, key := range unknown {
		log.WarnfUser("Unknown config key %q in %s", key, paths.ConfigFile)
	}

	return NewEnv(paths, cfg, log)
}

// NewEnv builds an Env from already loaded configuration.
func NewEnv(paths *configs.Paths, cfg *configs.Config, log logger.Logger) (*Env, error) {
	env := &Env{
		Paths:   paths,
		Config:  cfg,
		Metrics: metrics.NewRecorder(),
		Log:     log,
	}
	if cfg.Audit {
		env.Audit = audit.NewTrail(paths.AuditFile)
	}

	opts := repository.OptionsFromConfig(cfg, log)
	opts.Slot = registry.Process()
	opts.Audit = env.Audit
	opts.Metrics = env.Metrics

	mgr, err := repository.NewManager(opts)
	if err != nil {
		return nil, fmt.Errorf("building repository manager: %w", err)
	}
	env.Manager = mgr
	return env, nil
}

// TempRoot is the directory holding workspaces and staged copies.
func (e *Env) TempRoot() string {
	if e.Config.TempRoot != "" {
		return e.Config.TempRoot
	}
	return os.TempDir()
}

// Flush writes the metrics textfile when one is configured.
func (e *Env) Flush() {
	if err := e.Metrics.WriteTextfile(e.Config.MetricsTextfile); err != nil {
		e.Log.Warnf("Failed to write metrics to %s: %v", e.Config.MetricsTextfile, err)
	}
}
