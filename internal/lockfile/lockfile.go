// Package lockfile provides a short-lived advisory lock beside an archive.
//
// The lock is held only while an archive is being read or replaced, never
// for the lifetime of a session, so sync clients and backup tools are not
// blocked by an open repository. A lock older than its lease is considered
// abandoned and is taken over.
package lockfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/utils"
)

const (
	// Suffix is appended to the archive path to name its lock file.
	Suffix = ".lock"

	DefaultLease = 30 * time.Second

	pollInterval = 50 * time.Millisecond
)

// Info is the content of a lock file.
type Info struct {
	Token      string    `json:"token"`
	PID        int       `json:"pid"`
	Host       string    `json:"host,omitempty"`
	User       string    `json:"user,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the lease ran out before now.
func (i *Info) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Manager acquires archive locks.
type Manager struct {
	Lease time.Duration
	// Wait bounds how long Acquire waits for a live lock to be released.
	Wait time.Duration
	Log  logger.Logger
}

func NewManager(lease time.Duration, log logger.Logger) *Manager {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &Manager{Lease: lease, Wait: lease, Log: log}
}

// Lock is a held archive lock.
type Lock struct {
	path  string
	token string
}

// PathFor returns the lock file path for an archive.
func PathFor(archive string) string {
	return archive + Suffix
}

// Acquire takes the lock for archive, waiting up to m.Wait for another
// holder to release it.
func (m *Manager) Acquire(ctx context.Context, archive string) (*Lock, error) {
	path := PathFor(archive)
	deadline := time.Now().Add(m.Wait)

	for {
		lock, err := m.tryCreate(path)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: creating lock %s: %v", kerrors.ErrIO, path, err)
		}

		existing, readErr := m.read(path)
		if readErr != nil || existing.Expired(time.Now()) {
			m.Log.Warnf("Taking over stale lock %s", path)
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: removing stale lock %s: %v", kerrors.ErrIO, path, err)
			}
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s held by pid %d on %s since %s",
				kerrors.ErrRepositoryLocked, archive, existing.PID, existing.Host, existing.AcquiredAt.Format(time.RFC3339))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (m *Manager) tryCreate(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	info := Info{
		Token:      uuid.NewString(),
		PID:        os.Getpid(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(m.Lease),
	}
	info.Host, _ = utils.GetHostname()
	info.User, _ = utils.GetUsername()

	encodeErr := json.NewEncoder(file).Encode(info)
	closeErr := file.Close()
	if err := errors.Join(encodeErr, closeErr); err != nil {
		os.Remove(path)
		return nil, err
	}

	m.Log.Debugf("Acquired lock %s", path)
	return &Lock{path: path, token: info.Token}, nil
}

func (m *Manager) read(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		// A lock file caught mid-write looks empty; give its writer a moment.
		if stat, statErr := os.Stat(path); statErr == nil && time.Since(stat.ModTime()) < time.Second {
			return &Info{ExpiresAt: stat.ModTime().Add(time.Second)}, nil
		}
		return nil, err
	}
	return &info, nil
}

// Status returns the current lock holder, or nil when archive is unlocked.
func (m *Manager) Status(archive string) (*Info, error) {
	info, err := m.read(PathFor(archive))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return info, err
}

// Release removes the lock file if it is still ours. Calling it twice is safe.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	data, err := os.ReadFile(l.path)
	if err == nil {
		var info Info
		if json.Unmarshal(data, &info) == nil && info.Token != l.token {
			// Taken over after our lease ran out.
			l.path = ""
			return nil
		}
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: removing lock %s: %v", kerrors.ErrIO, l.path, err)
	}
	l.path = ""
	return nil
}
