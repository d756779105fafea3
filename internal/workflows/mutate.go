package workflows

import (
	"context"

	"github.com/PolarWolf314/lockbox/internal/repository"
	"github.com/PolarWolf314/lockbox/internal/store"
)

// AddOptions configures the add workflow.
type AddOptions struct {
	Target
	Credential store.Credential
}

// MutateResult contains the outcome of a workflow that changes an archive.
type MutateResult struct {
	// ID is the credential that was changed.
	ID string

	// Count is the number of credentials after the change.
	Count int

	SaveOutcome
}

// Add stores a new credential and saves the archive.
//
// Returns ErrDuplicateID if the id is taken.
// Returns ErrInvalidCredential if the credential fails validation.
func Add(ctx context.Context, env *Env, opts AddOptions) (*MutateResult, error) {
	result := &MutateResult{}
	outcome, err := mutate(ctx, env, opts.Target, func(s *repository.Session) error {
		id, err := s.AddCredential(opts.Credential)
		if err != nil {
			return err
		}
		result.ID = id
		result.Count = len(s.ListCredentials())
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.SaveOutcome = outcome
	return result, nil
}

// SetOptions configures the set workflow.
type SetOptions struct {
	Target

	ID        string
	Field     string
	Value     string
	Sensitive bool
}

// Set creates or updates one field of a credential and saves the archive.
//
// Returns ErrNotFound if the credential does not exist.
func Set(ctx context.Context, env *Env, opts SetOptions) (*MutateResult, error) {
	result := &MutateResult{ID: opts.ID}
	outcome, err := mutate(ctx, env, opts.Target, func(s *repository.Session) error {
		if err := s.UpdateField(opts.ID, opts.Field, opts.Value, opts.Sensitive); err != nil {
			return err
		}
		result.Count = len(s.ListCredentials())
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.SaveOutcome = outcome
	return result, nil
}

// DeleteOptions configures the delete workflow.
type DeleteOptions struct {
	Target
	ID string
}

// Delete removes a credential and saves the archive.
//
// Returns ErrNotFound if the credential does not exist.
func Delete(ctx context.Context, env *Env, opts DeleteOptions) (*MutateResult, error) {
	result := &MutateResult{ID: opts.ID}
	outcome, err := mutate(ctx, env, opts.Target, func(s *repository.Session) error {
		if err := s.DeleteCredential(opts.ID); err != nil {
			return err
		}
		result.Count = len(s.ListCredentials())
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.SaveOutcome = outcome
	return result, nil
}
