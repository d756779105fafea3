package workflows

import (
	"context"

	"github.com/PolarWolf314/lockbox/internal/store"
)

// CreateOptions configures the create workflow.
type CreateOptions struct {
	Target
}

// CreateResult contains the outcome of a create operation.
type CreateResult struct {
	// Path is the archive as named by the caller.
	Path string

	// Metadata is the metadata written to the new archive.
	Metadata store.Metadata

	SaveOutcome
}

// Create writes a new, empty repository.
//
// An existing file at the path is replaced; with backups enabled a copy is
// kept first.
//
// Returns ErrWeakPassword if the password is shorter than the configured minimum.
// Returns ErrAlreadyOpen if another session is registered.
func Create(ctx context.Context, env *Env, opts CreateOptions) (*CreateResult, error) {
	s, err := env.Manager.Create(ctx, opts.Path, opts.Password)
	outcome, err := settleCopyBack(ctx, env, s, err)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return &CreateResult{
		Path:        opts.Path,
		Metadata:    s.Metadata(),
		SaveOutcome: outcome,
	}, nil
}
