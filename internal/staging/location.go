package staging

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/utils"
)

// Location pairs the path a user knows an archive by with the local path
// the codec works on.
type Location struct {
	DisplayPath string
	WorkingPath string

	handle   Handle
	stageDir string
	log      logger.Logger

	mu          sync.Mutex
	fingerprint []byte
}

// Staged reports whether WorkingPath is a private copy of DisplayPath.
func (l *Location) Staged() bool {
	return l.handle != nil
}

// Resolver decides how each display path is staged.
type Resolver struct {
	// StageCloudFolders stages local files inside cloud-sync folders.
	StageCloudFolders bool
	Log               logger.Logger

	mu      sync.RWMutex
	openers map[string]Opener
}

func NewResolver(log logger.Logger) *Resolver {
	return &Resolver{
		StageCloudFolders: true,
		Log:               log,
		openers:           make(map[string]Opener),
	}
}

// Register installs the opener for references of the form "<scheme>://...".
func (r *Resolver) Register(scheme string, open Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[strings.ToLower(scheme)] = open
}

func schemeOf(ref string) (string, bool) {
	i := strings.Index(ref, "://")
	if i <= 1 {
		// "C://" style drive letters are paths, not schemes.
		return "", false
	}
	return strings.ToLower(ref[:i]), true
}

// Resolve returns the Location for displayPath. Staged locations read the
// current remote bytes into a private file under stageRoot. When the remote
// does not exist yet and mustExist is false, nothing is staged and
// WorkingPath does not exist; errors from the handle are returned
// unchanged otherwise so callers can classify them.
func (r *Resolver) Resolve(ctx context.Context, displayPath, stageRoot string, mustExist bool) (*Location, error) {
	var handle Handle
	if scheme, ok := schemeOf(displayPath); ok {
		r.mu.RLock()
		open, registered := r.openers[scheme]
		r.mu.RUnlock()
		if !registered {
			return nil, fmt.Errorf("%w: no handler registered for %s:// locations", kerrors.ErrIO, scheme)
		}
		h, err := open(displayPath)
		if err != nil {
			return nil, err
		}
		handle = h
	} else {
		abs, err := filepath.Abs(displayPath)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving %s: %v", kerrors.ErrIO, displayPath, err)
		}
		if !r.StageCloudFolders || !IsCloudSyncPath(abs) {
			return &Location{DisplayPath: displayPath, WorkingPath: displayPath, log: r.Log}, nil
		}
		handle = FileHandle{Path: abs}
	}

	if stageRoot == "" {
		stageRoot = os.TempDir()
	}
	if err := os.MkdirAll(stageRoot, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating staging root: %v", kerrors.ErrIO, err)
	}
	stageDir, err := os.MkdirTemp(stageRoot, "lockbox-stage-")
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging directory: %v", kerrors.ErrIO, err)
	}

	loc := &Location{
		DisplayPath: displayPath,
		WorkingPath: filepath.Join(stageDir, stagedName(displayPath)),
		handle:      handle,
		stageDir:    stageDir,
		log:         r.Log,
	}

	data, err := handle.ReadAll(ctx)
	switch {
	case err == nil:
		if err := os.WriteFile(loc.WorkingPath, data, 0600); err != nil {
			loc.Cleanup()
			return nil, fmt.Errorf("%w: staging %s: %v", kerrors.ErrIO, displayPath, err)
		}
		loc.fingerprint = fingerprint(data)
	case errors.Is(err, fs.ErrNotExist) && !mustExist:
	default:
		loc.Cleanup()
		return nil, err
	}

	r.Log.Debugf("Staged %s at %s", handle, loc.WorkingPath)
	return loc, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func stagedName(displayPath string) string {
	base := displayPath
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "archive"
	}
	return base
}

func fingerprint(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// CopyBack writes the working file to the display location. It fails with
// ErrStagingConflict when the remote changed since it was staged or last
// copied back. Every failure matches ErrCopyBackFailed; the working file is
// kept so the call can be retried.
func (l *Location) CopyBack(ctx context.Context) error {
	if !l.Staged() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.WorkingPath)
	if err != nil {
		return fmt.Errorf("%w: reading working copy: %w", kerrors.ErrCopyBackFailed, err)
	}

	current, err := l.handle.ReadAll(ctx)
	switch {
	case err == nil:
		if l.fingerprint == nil || !bytes.Equal(fingerprint(current), l.fingerprint) {
			// Already holding our bytes means an earlier attempt landed.
			if !bytes.Equal(current, data) {
				return fmt.Errorf("%w: %w: %s", kerrors.ErrCopyBackFailed, kerrors.ErrStagingConflict, l.DisplayPath)
			}
		}
	case errors.Is(err, fs.ErrNotExist):
		if l.fingerprint != nil {
			l.log.Warnf("%s disappeared since it was staged, recreating it", l.DisplayPath)
		}
	default:
		return fmt.Errorf("%w: checking %s: %w", kerrors.ErrCopyBackFailed, l.DisplayPath, err)
	}

	if err := l.handle.WriteAll(ctx, data); err != nil {
		return fmt.Errorf("%w: writing %s: %w", kerrors.ErrCopyBackFailed, l.DisplayPath, err)
	}
	l.fingerprint = fingerprint(data)
	l.log.Debugf("Copied %s back to %s", l.WorkingPath, l.DisplayPath)
	return nil
}

// Refresh re-reads the remote into the working file and resets the
// fingerprint. Used before reading the archive again, for example when
// verifying it.
func (l *Location) Refresh(ctx context.Context) error {
	if !l.Staged() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.handle.ReadAll(ctx)
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(l.WorkingPath, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIO, err)
	}
	l.fingerprint = fingerprint(data)
	return nil
}

// Cleanup removes the staged working copy. Safe to call more than once and
// on unstaged locations.
func (l *Location) Cleanup() {
	if l.stageDir == "" {
		return
	}
	if err := os.RemoveAll(l.stageDir); err != nil {
		l.log.Warnf("Could not remove staging directory %s: %v", l.stageDir, err)
	}
}
