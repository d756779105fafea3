package staging

import (
	"context"
	"os"

	"github.com/PolarWolf314/lockbox/internal/utils"
)

// Handle is a location that can only be read and written whole.
type Handle interface {
	ReadAll(ctx context.Context) ([]byte, error)
	WriteAll(ctx context.Context, data []byte) error
	String() string
}

// Opener turns a reference such as "content://provider/doc/42" into a Handle.
type Opener func(ref string) (Handle, error)

// FileHandle is a Handle over a local file. Writes are atomic.
type FileHandle struct {
	Path string
}

var _ Handle = FileHandle{}

func (h FileHandle) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(h.Path)
}

func (h FileHandle) WriteAll(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return utils.WriteFileAtomic(h.Path, data, 0600)
}

func (h FileHandle) String() string { return h.Path }
