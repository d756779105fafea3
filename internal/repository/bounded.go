package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

func timeoutError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", kerrors.ErrTimeout, op, cause)
}

// bounded runs work under timeout layered on ctx.
//
// Cancellation is only checked before work starts. Once started, work runs
// to completion even if the caller stops waiting; in that case the caller
// gets ErrTimeout and abandon is called with the late result so it can
// release what work acquired.
func bounded[T any](ctx context.Context, timeout time.Duration, op string, work func(context.Context) (T, error), abandon func(T)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		if abandon != nil {
			abandon(zero)
		}
		return zero, timeoutError(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	var mu sync.Mutex
	abandoned := false

	go func() {
		defer cancel()
		val, err := work(ctx)

		mu.Lock()
		defer mu.Unlock()
		if abandoned {
			if abandon != nil {
				abandon(val)
			}
			return
		}
		done <- outcome{val, err}
	}()

	select {
	case o := <-done:
		return o.val, mapContextError(op, o.err)
	case <-ctx.Done():
		mu.Lock()
		select {
		case o := <-done:
			mu.Unlock()
			return o.val, mapContextError(op, o.err)
		default:
		}
		abandoned = true
		mu.Unlock()
		return zero, timeoutError(op, ctx.Err())
	}
}

func mapContextError(op string, err error) error {
	if err == nil || errors.Is(err, kerrors.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return timeoutError(op, err)
	}
	return err
}
