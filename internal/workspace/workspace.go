package workspace

import (
	"fmt"
	"io/fs"
)

// Workspace holds the plaintext files of one open repository.
type Workspace interface {
	// ID uniquely names the workspace for logs.
	ID() string
	// Root is the directory backing the workspace, or "" when it has none.
	Root() string
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	// Remove deletes a file. Removing a missing file is not an error.
	Remove(name string) error
	// List returns every regular file, sorted, as slash-separated paths.
	List() ([]string, error)
	Destroy() error
}

func checkName(op, name string) error {
	if !fs.ValidPath(name) || name == "." {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	return nil
}

func destroyedError(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fmt.Errorf("workspace destroyed: %w", fs.ErrClosed)}
}
