package workflows

import (
	"context"

	"github.com/PolarWolf314/lockbox/internal/repository"
)

// RotateOptions configures the password change workflow.
type RotateOptions struct {
	Target

	// NewPassword replaces Password. Workflows do not retain it.
	NewPassword []byte
}

// RotateResult contains the outcome of a password change.
type RotateResult struct {
	Path string

	SaveOutcome
}

// Rotate re-encrypts an archive under a new password.
//
// The archive is opened with the current password, re-packed with the new
// one and replaced atomically. If writing fails the archive still opens
// with the current password.
//
// Returns ErrAuthenticationFailed if the current password is wrong.
// Returns ErrWeakPassword if the new password is too short.
func Rotate(ctx context.Context, env *Env, opts RotateOptions) (*RotateResult, error) {
	if err := env.Manager.CheckPassword(opts.NewPassword); err != nil {
		return nil, err
	}

	result := &RotateResult{Path: opts.Path}
	err := withSession(ctx, env, opts.Target, func(s *repository.Session) error {
		err := s.ChangePassword(ctx, opts.NewPassword)
		result.SaveOutcome, err = settleCopyBack(ctx, env, s, err)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
