package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/PolarWolf314/lockbox/internal/logging"
)

func newDir(t *testing.T) *Dir {
	t.Helper()
	ws, err := CreateUnique(t.TempDir(), logger.Logger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Destroy() })
	return ws
}

func TestCreateUniqueNeverReusesNames(t *testing.T) {
	root := t.TempDir()
	seen := make(map[string]bool)

	for i := 0; i < 20; i++ {
		ws, err := CreateUnique(root, logger.Logger{})
		require.NoError(t, err)
		assert.False(t, seen[ws.Root()], "workspace %s reused", ws.Root())
		seen[ws.Root()] = true
		assert.True(t, strings.HasPrefix(ws.ID(), Prefix))
	}
}

func TestCreateUniqueIsPrivate(t *testing.T) {
	ws := newDir(t)

	info, err := os.Stat(ws.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestDirWriteReadList(t *testing.T) {
	ws := newDir(t)

	require.NoError(t, ws.WriteFile("metadata.yml", []byte("a")))
	require.NoError(t, ws.WriteFile("credentials/c1/record.yml", []byte("b")))

	data, err := ws.ReadFile("credentials/c1/record.yml")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	names, err := ws.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"credentials/c1/record.yml", "metadata.yml"}, names)
}

func TestDirRejectsEscapingNames(t *testing.T) {
	ws := newDir(t)

	for _, name := range []string{"../escape", "/abs", "a/../../b", "."} {
		err := ws.WriteFile(name, []byte("x"))
		assert.ErrorIs(t, err, fs.ErrInvalid, name)
	}
}

func TestDirRemovePrunesEmptyParents(t *testing.T) {
	ws := newDir(t)

	require.NoError(t, ws.WriteFile("credentials/c1/record.yml", []byte("x")))
	require.NoError(t, ws.WriteFile("credentials/c2/record.yml", []byte("y")))
	require.NoError(t, ws.Remove("credentials/c1/record.yml"))

	_, err := os.Stat(filepath.Join(ws.Root(), "credentials", "c1"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = os.Stat(filepath.Join(ws.Root(), "credentials", "c2"))
	assert.NoError(t, err)

	assert.NoError(t, ws.Remove("credentials/missing/record.yml"))
}

func TestDirNestedWriteUnderFileFails(t *testing.T) {
	ws := newDir(t)

	require.NoError(t, ws.WriteFile("credentials", []byte("not a directory")))
	err := ws.WriteFile("credentials/c1/record.yml", []byte("x"))
	assert.ErrorIs(t, err, syscall.ENOTDIR)
}

func TestDirDestroyIsIdempotent(t *testing.T) {
	ws := newDir(t)
	require.NoError(t, ws.WriteFile("credentials/c1/record.yml", []byte("secret")))

	require.NoError(t, ws.Destroy())
	_, err := os.Stat(ws.Root())
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	assert.NoError(t, ws.Destroy())
	assert.ErrorIs(t, ws.WriteFile("x", nil), fs.ErrClosed)
}

func TestDirDestroyAlreadyGone(t *testing.T) {
	ws := newDir(t)
	require.NoError(t, os.RemoveAll(ws.Root()))

	assert.NoError(t, ws.Destroy())
}

func TestMemoryWorkspace(t *testing.T) {
	ws := NewMemory()
	assert.Equal(t, "", ws.Root())

	require.NoError(t, ws.WriteFile("credentials/c1/record.yml", []byte("secret")))
	require.NoError(t, ws.WriteFile("metadata.yml", []byte("meta")))

	names, err := ws.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"credentials/c1/record.yml", "metadata.yml"}, names)

	_, err = ws.ReadFile("missing.yml")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	assert.ErrorIs(t, ws.WriteFile("credentials", []byte("x")), syscall.EISDIR)
	assert.ErrorIs(t, ws.WriteFile("metadata.yml/child", []byte("x")), syscall.ENOTDIR)

	require.NoError(t, ws.Remove("metadata.yml"))
	names, err = ws.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"credentials/c1/record.yml"}, names)
}

func TestMemoryDestroyZeroesContents(t *testing.T) {
	ws := NewMemory()
	require.NoError(t, ws.WriteFile("record.yml", []byte("secret")))

	ws.mu.Lock()
	stored := ws.files["record.yml"]
	ws.mu.Unlock()

	require.NoError(t, ws.Destroy())
	assert.Equal(t, make([]byte, len("secret")), stored)

	_, err := ws.List()
	assert.ErrorIs(t, err, fs.ErrClosed)
	assert.NoError(t, ws.Destroy())
}

func TestOwnerPID(t *testing.T) {
	tests := []struct {
		name string
		pid  int
		ok   bool
	}{
		{Prefix + "123-456-abcd", 123, true},
		{Prefix + "x-456-abcd", 0, false},
		{Prefix + "123", 0, false},
		{"other-123-456", 0, false},
	}
	for _, tt := range tests {
		pid, ok := ownerPID(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.pid, pid, tt.name)
	}
}

func TestSweepStaleKeepsOwnWorkspaces(t *testing.T) {
	root := t.TempDir()
	ws, err := CreateUnique(root, logger.Logger{})
	require.NoError(t, err)
	defer ws.Destroy()

	unrelated := filepath.Join(root, "unrelated")
	require.NoError(t, os.Mkdir(unrelated, 0700))

	removed, err := SweepStale(root, logger.Logger{})
	require.NoError(t, err)
	assert.Empty(t, removed)

	_, err = os.Stat(ws.Root())
	assert.NoError(t, err)
	_, err = os.Stat(unrelated)
	assert.NoError(t, err)
}
