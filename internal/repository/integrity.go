package repository

import (
	"bytes"
	"context"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/store"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

// IntegrityReport compares the archive on disk with the open session.
type IntegrityReport struct {
	Archive string
	Layout  store.Layout

	MetadataCount int
	ArchiveCount  int
	MemoryCount   int

	// Ids present in memory only, in the archive only, or in both with
	// different contents.
	MissingFromArchive []string
	MissingFromMemory  []string
	Differing          []string

	// Unsaved is true when the session has changes not yet saved.
	Unsaved bool
}

// OK reports whether the archive holds exactly what the session holds.
func (r *IntegrityReport) OK() bool {
	return r.MetadataCount == r.ArchiveCount &&
		r.ArchiveCount == r.MemoryCount &&
		len(r.MissingFromArchive) == 0 &&
		len(r.MissingFromMemory) == 0 &&
		len(r.Differing) == 0
}

// VerifyIntegrity re-reads the archive with the session password into a
// scratch in-memory workspace and compares it with the session. Decode
// failures are returned as errors; disagreements are reported.
func (s *Session) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	start := time.Now()
	m := s.manager

	report, err := bounded(ctx, m.opts.OperationTimeout, audit.OpVerify, func(ctx context.Context) (*IntegrityReport, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.verifyLocked(ctx)
	}, nil)
	if err != nil {
		err = &kerrors.OpError{Op: audit.OpVerify, Path: s.display, Err: err}
	}
	m.finish(audit.OpVerify, s.display, start, s, err)
	return report, err
}

func (s *Session) verifyLocked(ctx context.Context) (*IntegrityReport, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	m := s.manager

	// An unsynced save lives only in the working copy.
	if !s.copyBackPending {
		if err := s.loc.Refresh(ctx); err != nil {
			return nil, classifyFileError(s.display, err)
		}
	}

	if err := preCheck(s.loc.WorkingPath); err != nil {
		return nil, err
	}
	data, err := m.readArchive(ctx, s.loc.WorkingPath)
	if err != nil {
		return nil, err
	}

	scratch := workspace.NewMemory()
	defer scratch.Destroy()

	if err := m.opts.Codec.Unpack(ctx, data, s.password, scratch); err != nil {
		return nil, classifyCodecError(s.display, err)
	}
	meta, records, layout, err := store.Load(scratch)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{
		Archive:       s.display,
		Layout:        layout,
		MetadataCount: meta.CredentialCount,
		ArchiveCount:  len(records),
		MemoryCount:   len(s.records),
		Unsaved:       s.modified,
	}

	onDisk := make(map[string]store.Credential, len(records))
	for _, rec := range records {
		onDisk[rec.ID] = rec
		mem, ok := s.records[rec.ID]
		switch {
		case !ok:
			report.MissingFromMemory = append(report.MissingFromMemory, rec.ID)
		case !sameCredential(mem, rec):
			report.Differing = append(report.Differing, rec.ID)
		}
	}
	for id := range s.records {
		if _, ok := onDisk[id]; !ok {
			report.MissingFromArchive = append(report.MissingFromArchive, id)
		}
	}
	sort.Strings(report.MissingFromArchive)

	return report, nil
}

// sameCredential compares two credentials by their stored form.
func sameCredential(a, b store.Credential) bool {
	a, b = a.Clone(), b.Clone()
	a.Normalize()
	b.Normalize()

	left, err := yaml.Marshal(&a)
	if err != nil {
		return false
	}
	right, err := yaml.Marshal(&b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}
