package workspace

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
)

// Memory is a Workspace that keeps every file in process memory.
type Memory struct {
	id string

	mu        sync.Mutex
	files     map[string][]byte
	destroyed bool
}

var _ Workspace = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		id:    "memory-" + uuid.NewString()[:8],
		files: make(map[string][]byte),
	}
}

func (m *Memory) ID() string   { return m.id }
func (m *Memory) Root() string { return "" }

func (m *Memory) WriteFile(name string, data []byte) error {
	if err := checkName("write", name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return destroyedError("write", name)
	}
	for existing := range m.files {
		if strings.HasPrefix(existing, name+"/") {
			return &fs.PathError{Op: "write", Path: name, Err: syscall.EISDIR}
		}
	}
	for parent := path.Dir(name); parent != "."; parent = path.Dir(parent) {
		if _, ok := m.files[parent]; ok {
			return &fs.PathError{Op: "write", Path: name, Err: syscall.ENOTDIR}
		}
	}

	zero(m.files[name])
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) ReadFile(name string) ([]byte, error) {
	if err := checkName("read", name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return nil, destroyedError("read", name)
	}
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Remove(name string) error {
	if err := checkName("remove", name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return destroyedError("remove", name)
	}
	zero(m.files[name])
	delete(m.files, name)
	return nil
}

func (m *Memory) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return nil, destroyedError("list", ".")
	}
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Destroy overwrites every stored byte before dropping the files.
func (m *Memory) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, data := range m.files {
		zero(data)
		delete(m.files, name)
	}
	m.destroyed = true
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
