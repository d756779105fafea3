package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
)

// Prefix starts the name of every directory workspace.
const Prefix = "lockbox-ws-"

const createAttempts = 5

// Dir is a Workspace backed by a private directory.
type Dir struct {
	root string
	log  logger.Logger

	mu        sync.Mutex
	destroyed bool
}

var _ Workspace = (*Dir)(nil)

// CreateUnique allocates a new workspace directory under root. An empty root
// means os.TempDir().
func CreateUnique(root string, log logger.Logger) (*Dir, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating temp root %s: %v", kerrors.ErrIO, root, err)
	}

	var lastErr error
	for i := 0; i < createAttempts; i++ {
		name := fmt.Sprintf("%s%d-%d-%s", Prefix, os.Getpid(), time.Now().UnixNano(), uuid.NewString()[:8])
		dir := filepath.Join(root, name)

		err := os.Mkdir(dir, 0700)
		if err == nil {
			log.Debugf("Created workspace %s", dir)
			return &Dir{root: dir, log: log}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: creating workspace: %v", kerrors.ErrIO, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: no unique workspace name after %d attempts: %v", kerrors.ErrIO, createAttempts, lastErr)
}

func (d *Dir) ID() string   { return filepath.Base(d.root) }
func (d *Dir) Root() string { return d.root }

func (d *Dir) alive(op, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return destroyedError(op, name)
	}
	return nil
}

func (d *Dir) resolve(op, name string) (string, error) {
	if err := checkName(op, name); err != nil {
		return "", err
	}
	if err := d.alive(op, name); err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(name)), nil
}

func (d *Dir) WriteFile(name string, data []byte) error {
	full, err := d.resolve("write", name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0600)
}

func (d *Dir) ReadFile(name string) ([]byte, error) {
	full, err := d.resolve("read", name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Remove deletes name and prunes parent directories it leaves empty.
func (d *Dir) Remove(name string) error {
	full, err := d.resolve("remove", name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	for parent := path.Dir(name); parent != "."; parent = path.Dir(parent) {
		// Fails once a directory still has entries.
		if os.Remove(filepath.Join(d.root, filepath.FromSlash(parent))) != nil {
			break
		}
	}
	return nil
}

func (d *Dir) List() ([]string, error) {
	if err := d.alive("list", "."); err != nil {
		return nil, err
	}

	var names []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// Destroy recursively deletes the workspace directory.
func (d *Dir) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil
	}

	err := os.RemoveAll(d.root)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		d.destroyed = true
		d.log.Debugf("Destroyed workspace %s", d.root)
		return nil
	}

	residue := countFiles(d.root)
	d.log.WarnfAlways("Workspace %s was not fully removed, %d file(s) left behind: %v", d.root, residue, err)
	return fmt.Errorf("%w: removing workspace %s: %v", kerrors.ErrIO, d.root, err)
}

func countFiles(root string) int {
	n := 0
	_ = filepath.WalkDir(root, func(_ string, entry fs.DirEntry, err error) error {
		if err == nil && !entry.IsDir() {
			n++
		}
		return nil
	})
	return n
}
