package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// over path only once the data is fully on disk. A concurrent reader sees
// either the old contents or the new ones, never a partial file. On failure
// path is left untouched.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return nil
}

// CopyFileAtomic copies src to dst through WriteFileAtomic, keeping src's mode.
func CopyFileAtomic(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return WriteFileAtomic(dst, data, info.Mode().Perm())
}

// ExpandPath resolves a leading ~ to the user's home directory and cleans the result.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}

	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		p = filepath.Join(home, p[1:])
	}

	return filepath.Clean(p), nil
}
