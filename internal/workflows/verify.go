package workflows

import (
	"context"

	"github.com/PolarWolf314/lockbox/internal/backup"
	"github.com/PolarWolf314/lockbox/internal/repository"
)

// VerifyOptions configures the verify workflow.
type VerifyOptions struct {
	Target
}

// VerifyResult contains the outcome of an integrity check.
type VerifyResult struct {
	Report *repository.IntegrityReport

	// LatestBackup is the newest backup of the archive, if any.
	LatestBackup *backup.Info
}

// Verify opens an archive and checks it by decoding it a second time.
//
// A successful open already proves the password, the codec envelope and
// the metadata count. The second decode compares what is on disk with what
// was loaded, which catches a file replaced between the two reads.
//
// Returns ErrCorruptArchive or ErrStructure when the archive cannot be
// loaded at all.
func Verify(ctx context.Context, env *Env, opts VerifyOptions) (*VerifyResult, error) {
	result := &VerifyResult{}
	err := withSession(ctx, env, opts.Target, func(s *repository.Session) error {
		report, err := s.VerifyIntegrity(ctx)
		if err != nil {
			return err
		}
		result.Report = report
		return nil
	})
	if err != nil {
		return nil, err
	}

	if latest, ok := backupsFor(env).Latest(opts.Path); ok {
		result.LatestBackup = &latest
	}
	return result, nil
}
