package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/PolarWolf314/lockbox/internal/audit"
	"github.com/PolarWolf314/lockbox/internal/backup"
	"github.com/PolarWolf314/lockbox/internal/codec"
	"github.com/PolarWolf314/lockbox/internal/configs"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/lockfile"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/metrics"
	"github.com/PolarWolf314/lockbox/internal/registry"
	"github.com/PolarWolf314/lockbox/internal/staging"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

// Backend selects where plaintext lives while a session is open.
type Backend string

const (
	// BackendHybrid extracts the archive into a private temp directory.
	BackendHybrid Backend = configs.BackendHybrid
	// BackendLegacy keeps the extracted files in memory only.
	BackendLegacy Backend = configs.BackendLegacy
)

const DefaultOperationTimeout = 30 * time.Second

// Options configures a Manager. Zero values select defaults.
type Options struct {
	Backend           Backend
	TempRoot          string
	OperationTimeout  time.Duration
	LockTimeout       time.Duration
	MinPasswordLength int

	Codec    codec.Codec
	Resolver *staging.Resolver
	// Slot holds the open session. Managers sharing a slot share the
	// single-session limit.
	Slot *registry.Slot[io.Closer]
	// Backups is nil when backups are disabled.
	Backups *backup.Manager
	Audit   *audit.Trail
	Metrics *metrics.Recorder
	Log     logger.Logger
}

// OptionsFromConfig builds Options from user configuration. Collaborators
// that are not configurable (slot, resolver, audit trail, metrics) are left
// for the caller to set.
func OptionsFromConfig(cfg *configs.Config, log logger.Logger) Options {
	opts := Options{
		Backend:           Backend(cfg.Backend),
		TempRoot:          cfg.TempRoot,
		OperationTimeout:  cfg.OperationTimeout.Duration,
		LockTimeout:       cfg.LockTimeout.Duration,
		MinPasswordLength: cfg.MinPasswordLength,
		Codec: codec.NewSealed(codec.Params{
			Time:      cfg.Argon2.Time,
			MemoryKiB: cfg.Argon2.MemoryKiB,
			Threads:   cfg.Argon2.Threads,
		}),
		Log: log,
	}
	if cfg.Backup.Enabled {
		opts.Backups = backup.NewManager(cfg.Backup.Dir, cfg.Backup.Count, log)
	}
	return opts
}

// Manager creates and opens repository sessions. Only one session per slot
// may be open at a time.
type Manager struct {
	opts  Options
	locks *lockfile.Manager
	now   func() time.Time
}

// NewManager validates opts and fills in defaults.
func NewManager(opts Options) (*Manager, error) {
	switch opts.Backend {
	case "":
		opts.Backend = BackendHybrid
	case BackendHybrid, BackendLegacy:
	default:
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedBackend, opts.Backend)
	}

	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	if opts.MinPasswordLength < configs.MinPasswordFloor {
		opts.MinPasswordLength = configs.MinPasswordFloor
	}
	if opts.Codec == nil {
		opts.Codec = codec.NewSealed(codec.DefaultParams)
	}
	if opts.Resolver == nil {
		opts.Resolver = staging.NewResolver(opts.Log)
	}
	if opts.Slot == nil {
		opts.Slot = registry.NewSlot[io.Closer]()
	}

	return &Manager{
		opts:  opts,
		locks: lockfile.NewManager(opts.LockTimeout, opts.Log),
		now:   time.Now,
	}, nil
}

func (m *Manager) Backend() Backend {
	return m.opts.Backend
}

// Slot returns the slot sessions are registered in.
func (m *Manager) Slot() *registry.Slot[io.Closer] {
	return m.opts.Slot
}

// CheckPassword applies the minimum length policy.
func (m *Manager) CheckPassword(password []byte) error {
	if len(password) < m.opts.MinPasswordLength {
		return fmt.Errorf("%w: at least %d characters are required", kerrors.ErrWeakPassword, m.opts.MinPasswordLength)
	}
	return nil
}

func (m *Manager) newWorkspace() (workspace.Workspace, error) {
	if m.opts.Backend == BackendLegacy {
		return workspace.NewMemory(), nil
	}
	return workspace.CreateUnique(m.opts.TempRoot, m.opts.Log)
}

func (m *Manager) newSession(path string, password []byte) *Session {
	return &Session{
		manager:  m,
		display:  path,
		password: append([]byte(nil), password...),
	}
}

// Create writes a new empty repository to path and opens it. An existing
// file at path is replaced (after a backup copy when backups are enabled).
// On failure path is untouched and no workspace remains.
//
// When the archive is written but could not be copied back to a staged
// location, the open session is returned together with an error matching
// kerrors.ErrCopyBackFailed.
func (m *Manager) Create(ctx context.Context, path string, password []byte) (*Session, error) {
	start := time.Now()
	s, err := m.create(ctx, path, password)
	m.finish(audit.OpCreate, path, start, s, err)
	return s, err
}

func (m *Manager) create(ctx context.Context, path string, password []byte) (*Session, error) {
	if err := m.CheckPassword(password); err != nil {
		return nil, err
	}

	s := m.newSession(path, password)
	if err := m.opts.Slot.Claim(s); err != nil {
		s.wipePassword()
		return nil, err
	}

	return bounded(ctx, m.opts.OperationTimeout, audit.OpCreate, func(ctx context.Context) (*Session, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return nil, &kerrors.OpError{Op: audit.OpCreate, Path: path, Err: kerrors.ErrRepositoryClosed}
		}

		warning, err := s.initialize(ctx)
		if err != nil {
			s.teardownLocked()
			return nil, &kerrors.OpError{Op: audit.OpCreate, Path: path, Err: err}
		}
		if warning != nil {
			return s, &kerrors.OpError{Op: audit.OpCreate, Path: path, Err: warning}
		}
		return s, nil
	}, func(*Session) { s.discard() })
}

// Open decrypts the archive at path and loads its credentials.
//
// Missing, empty, unreadable and directory paths are rejected before the
// codec runs. A wrong password fails with kerrors.ErrAuthenticationFailed,
// an undecodable archive with kerrors.ErrCorruptArchive and an internally
// inconsistent one with kerrors.ErrStructure. The file is never modified.
func (m *Manager) Open(ctx context.Context, path string, password []byte) (*Session, error) {
	start := time.Now()
	s, err := m.open(ctx, path, password)
	m.finish(audit.OpOpen, path, start, s, err)
	return s, err
}

func (m *Manager) open(ctx context.Context, path string, password []byte) (*Session, error) {
	s := m.newSession(path, password)
	if err := m.opts.Slot.Claim(s); err != nil {
		s.wipePassword()
		return nil, err
	}

	return bounded(ctx, m.opts.OperationTimeout, audit.OpOpen, func(ctx context.Context) (*Session, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return nil, &kerrors.OpError{Op: audit.OpOpen, Path: path, Err: kerrors.ErrRepositoryClosed}
		}

		if err := s.load(ctx); err != nil {
			s.teardownLocked()
			return nil, &kerrors.OpError{Op: audit.OpOpen, Path: path, Err: err}
		}
		return s, nil
	}, func(*Session) { s.discard() })
}

// Reopen closes the session currently held by the slot, if any, and opens path.
func (m *Manager) Reopen(ctx context.Context, path string, password []byte) (*Session, error) {
	if err := m.opts.Slot.CloseCurrent(); err != nil {
		m.opts.Log.Warnf("Closing the previous repository failed: %v", err)
	}
	return m.Open(ctx, path, password)
}

// preCheck classifies the archive file without invoking the codec.
func preCheck(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", kerrors.ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", kerrors.ErrPermissionDenied, path)
	case err != nil:
		return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	case info.IsDir():
		return fmt.Errorf("%w: %s is a directory", kerrors.ErrIO, path)
	case info.Size() == 0:
		return fmt.Errorf("%w: %s", kerrors.ErrEmptyFile, path)
	}
	return nil
}

// classifyFileError maps an error reading or writing the archive file.
func classifyFileError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", kerrors.ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", kerrors.ErrPermissionDenied, path)
	case errors.Is(err, kerrors.ErrIO), errors.Is(err, kerrors.ErrRepositoryLocked):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	}
	return fmt.Errorf("%w: %s: %v", kerrors.ErrIO, path, err)
}

// classifyCodecError maps codec failures onto repository error kinds.
func classifyCodecError(path string, err error) error {
	var ce *kerrors.CodecError
	if !errors.As(err, &ce) {
		return classifyFileError(path, err)
	}
	switch ce.Kind {
	case kerrors.CodecBadPassword:
		return fmt.Errorf("%w: %s", kerrors.ErrAuthenticationFailed, path)
	case kerrors.CodecUnsupportedFormat, kerrors.CodecTruncated, kerrors.CodecCorrupt:
		return fmt.Errorf("%w: %s: %v", kerrors.ErrCorruptArchive, path, ce)
	}
	return fmt.Errorf("%w: %s: %v", kerrors.ErrIO, path, ce)
}

// readArchive reads the working file under the archive lock.
func (m *Manager) readArchive(ctx context.Context, path string) ([]byte, error) {
	lock, err := m.locks.Acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, classifyFileError(path, err)
	}
	return data, nil
}

// writeArchive replaces the working file under the archive lock, taking a
// backup of the previous contents first. A failed backup is only logged.
func (m *Manager) writeArchive(ctx context.Context, path string, data []byte) error {
	lock, err := m.locks.Acquire(ctx, path)
	if err != nil {
		return err
	}
	defer lock.Release()

	if m.opts.Backups != nil {
		if _, err := m.opts.Backups.Create(path); err != nil {
			m.opts.Log.WarnfAlways("Backup before saving failed: %v", err)
		}
	}

	if err := utils.WriteFileAtomic(path, data, 0600); err != nil {
		return classifyFileError(path, err)
	}
	return nil
}

// finish records audit and metrics for a session-level operation.
func (m *Manager) finish(op, path string, start time.Time, s *Session, err error) {
	result := metrics.ResultSuccess
	switch {
	case err != nil && kerrors.IsWarning(err):
		result = metrics.ResultWarning
		m.opts.Metrics.CopyBackFailed()
	case err != nil:
		result = metrics.ResultError
	}
	m.opts.Metrics.Observe(op, result, time.Since(start))

	entry := audit.NewEntry(op, path)
	entry.Error = kerrors.Kind(err)
	if s != nil && (err == nil || kerrors.IsWarning(err)) {
		entry.Count, entry.Layout = s.stats()
		m.opts.Metrics.SetCredentials(entry.Count)
	}
	m.opts.Audit.Log(entry)

	if err != nil && !kerrors.IsWarning(err) {
		m.opts.Log.Errorf("%s %s failed: %v", op, path, err)
	} else {
		m.opts.Log.Infof("%s %s", op, path)
	}
}
