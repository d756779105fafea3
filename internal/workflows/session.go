package workflows

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/repository"
)

// copyBackAttempts bounds RetryCopyBack calls after a save whose copy back failed.
const copyBackAttempts = 4

// Target names the archive a workflow operates on.
type Target struct {
	// Path is the archive path or a registered location reference.
	Path string

	// Password unlocks the archive. Workflows do not retain it.
	Password []byte
}

// SaveOutcome describes how a save ended.
type SaveOutcome struct {
	// CopyBackWarning is set when the archive was saved locally but could
	// not be copied back to its original location after retrying.
	CopyBackWarning error

	// LocalCopy is the path of the saved working copy when CopyBackWarning is set.
	LocalCopy string
}

// withSession opens target, runs fn and closes the session again.
func withSession(ctx context.Context, env *Env, target Target, fn func(*repository.Session) error) error {
	s, err := env.Manager.Open(ctx, target.Path, target.Password)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			env.Log.Warnf("Closing %s: %v", target.Path, err)
		}
	}()
	return fn(s)
}

// mutate opens target, applies fn and saves the result.
func mutate(ctx context.Context, env *Env, target Target, fn func(*repository.Session) error) (SaveOutcome, error) {
	var outcome SaveOutcome
	err := withSession(ctx, env, target, func(s *repository.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		var err error
		outcome, err = save(ctx, env, s)
		return err
	})
	return outcome, err
}

// save saves s and retries a failed copy back with exponential backoff.
// A copy back that still fails is reported in the outcome, not as an error.
func save(ctx context.Context, env *Env, s *repository.Session) (SaveOutcome, error) {
	err := s.Save(ctx)
	return settleCopyBack(ctx, env, s, err)
}

func settleCopyBack(ctx context.Context, env *Env, s *repository.Session, err error) (SaveOutcome, error) {
	if err == nil || !kerrors.IsWarning(err) {
		return SaveOutcome{}, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second

	retry := func() error {
		err := s.RetryCopyBack(ctx)
		if errors.Is(err, kerrors.ErrStagingConflict) {
			return backoff.Permanent(err)
		}
		if err != nil {
			env.Log.Infof("Copy back of %s failed, retrying: %v", s.DisplayPath(), err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, copyBackAttempts), ctx)
	if retryErr := backoff.Retry(retry, b); retryErr != nil {
		return SaveOutcome{CopyBackWarning: retryErr, LocalCopy: s.WorkingPath()}, nil
	}
	return SaveOutcome{}, nil
}
