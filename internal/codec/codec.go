package codec

import (
	"context"

	"github.com/PolarWolf314/lockbox/internal/workspace"
)

// Codec packs a workspace into archive bytes and unpacks archive bytes into
// a workspace.
type Codec interface {
	Pack(ctx context.Context, src workspace.Workspace, password []byte) ([]byte, error)
	Unpack(ctx context.Context, data []byte, password []byte, dst workspace.Workspace) error
}
