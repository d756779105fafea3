package workflows

import (
	"context"

	"github.com/PolarWolf314/lockbox/internal/repository"
	"github.com/PolarWolf314/lockbox/internal/store"
)

// ListOptions configures the list workflow.
type ListOptions struct {
	Target

	// Query filters the listed credentials. The zero value lists all of them.
	Query repository.Query
}

// ListResult contains the outcome of a list operation.
type ListResult struct {
	Metadata store.Metadata
	Layout   store.Layout

	// Credentials are redacted copies sorted by id.
	Credentials []store.Credential
}

// List returns the credentials of an archive with sensitive values redacted.
//
// Returns ErrNotFound if the archive does not exist.
// Returns ErrAuthenticationFailed if the password is wrong.
func List(ctx context.Context, env *Env, opts ListOptions) (*ListResult, error) {
	result := &ListResult{}
	err := withSession(ctx, env, opts.Target, func(s *repository.Session) error {
		result.Metadata = s.Metadata()
		result.Layout = s.Layout()
		for _, c := range s.Search(opts.Query) {
			result.Credentials = append(result.Credentials, repository.Redacted(c))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ShowOptions configures the show workflow.
type ShowOptions struct {
	Target

	ID string

	// Reveal returns sensitive values instead of redacting them.
	Reveal bool
}

// Show returns one credential.
//
// Returns ErrNotFound if the archive or the credential does not exist.
func Show(ctx context.Context, env *Env, opts ShowOptions) (*store.Credential, error) {
	var out store.Credential
	err := withSession(ctx, env, opts.Target, func(s *repository.Session) error {
		c, err := s.Credential(opts.ID)
		if err != nil {
			return err
		}
		if !opts.Reveal {
			c = repository.Redacted(c)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
