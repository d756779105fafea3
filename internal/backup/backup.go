// Package backup keeps timestamped copies of an archive before it is replaced.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/utils"
)

const (
	DefaultCount = 3

	timestampLayout = "20060102_150405"
	marker          = "_backup_"
)

// Info describes one backup file.
type Info struct {
	Path    string
	Size    int64
	Created time.Time
}

// Manager creates and rotates backups.
type Manager struct {
	// Dir holds the backups. Empty means next to the archive.
	Dir   string
	Count int
	Log   logger.Logger

	now func() time.Time
}

func NewManager(dir string, count int, log logger.Logger) *Manager {
	if count <= 0 {
		count = DefaultCount
	}
	return &Manager{Dir: dir, Count: count, Log: log, now: time.Now}
}

func splitName(archive string) (stem, ext string) {
	base := filepath.Base(archive)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

func (m *Manager) dirFor(archive string) string {
	if m.Dir != "" {
		return m.Dir
	}
	return filepath.Dir(archive)
}

// Name returns the backup file name for archive taken at t.
func Name(archive string, t time.Time) string {
	stem, ext := splitName(archive)
	return stem + marker + t.Format(timestampLayout) + ext
}

// Create copies archive into the backup directory and prunes old copies.
// A missing archive is not an error and yields an empty path.
func (m *Manager) Create(archive string) (string, error) {
	if _, err := os.Stat(archive); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	dest := filepath.Join(m.dirFor(archive), Name(archive, m.now()))
	// Two saves inside the same second share a name; the later one wins.
	if err := utils.CopyFileAtomic(archive, dest); err != nil {
		return "", fmt.Errorf("%w: backing up %s: %v", kerrors.ErrIO, archive, err)
	}
	m.Log.Debugf("Backed up %s to %s", archive, dest)

	if err := m.prune(archive); err != nil {
		m.Log.Warnf("Failed to prune old backups of %s: %v", archive, err)
	}
	return dest, nil
}

func (m *Manager) prune(archive string) error {
	backups, err := m.List(archive)
	if err != nil {
		return err
	}
	if len(backups) <= m.Count {
		return nil
	}

	var errs []error
	for _, b := range backups[m.Count:] {
		if err := os.Remove(b.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		m.Log.Debugf("Removed old backup %s", b.Path)
	}
	return errors.Join(errs...)
}

// List returns the backups of archive, newest first.
func (m *Manager) List(archive string) ([]Info, error) {
	dir := m.dirFor(archive)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listing backups in %s: %v", kerrors.ErrIO, dir, err)
	}

	stem, ext := splitName(archive)
	prefix := stem + marker

	var backups []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		created, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
		if err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			Created: created,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Created.After(backups[j].Created)
	})
	return backups, nil
}

// Latest returns the newest backup of archive, if any.
func (m *Manager) Latest(archive string) (Info, bool) {
	backups, err := m.List(archive)
	if err != nil || len(backups) == 0 {
		return Info{}, false
	}
	return backups[0], true
}
