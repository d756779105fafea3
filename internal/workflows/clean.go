package workflows

import (
	"context"

	"github.com/PolarWolf314/lockbox/internal/workspace"
)

// CleanOptions configures the clean workflow.
type CleanOptions struct {
	// DryRun previews what would be removed without making changes.
	DryRun bool
}

// CleanResult contains the outcome of a clean operation.
type CleanResult struct {
	// Stale lists the leftover workspace directories that were found.
	Stale []string

	// RemovedCount is the number of directories removed (0 if dry-run).
	RemovedCount int

	DryRun bool
}

// Clean removes extraction workspaces left behind by crashed processes.
//
// A workspace is stale when the process that created it is no longer
// running. Workspaces of live processes, including this one, are kept.
func Clean(ctx context.Context, env *Env, opts CleanOptions) (*CleanResult, error) {
	root := env.TempRoot()
	result := &CleanResult{DryRun: opts.DryRun}

	if opts.DryRun {
		stale, err := workspace.FindStale(root)
		if err != nil {
			return nil, err
		}
		result.Stale = stale
		return result, nil
	}

	removed, err := workspace.SweepStale(root, env.Log)
	result.Stale = removed
	result.RemovedCount = len(removed)
	if err != nil {
		return result, err
	}
	return result, nil
}
