package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/staging"
	"github.com/PolarWolf314/lockbox/internal/store"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

// Session is one open repository. All methods are safe for concurrent use.
type Session struct {
	manager *Manager
	display string

	mu       sync.Mutex
	password []byte
	loc      *staging.Location
	ws       workspace.Workspace
	meta     store.Metadata
	layout   store.Layout
	records  map[string]store.Credential

	open            bool
	closed          bool
	modified        bool
	copyBackPending bool
}

// initialize builds an empty repository in a fresh workspace and writes it.
// A non-nil warning means the archive was written locally but not copied back.
func (s *Session) initialize(ctx context.Context) (warning error, err error) {
	m := s.manager

	s.loc, err = m.opts.Resolver.Resolve(ctx, s.display, m.opts.TempRoot, false)
	if err != nil {
		return nil, classifyFileError(s.display, err)
	}

	s.ws, err = m.newWorkspace()
	if err != nil {
		return nil, err
	}

	meta := store.NewMetadata(m.now())
	layout, err := store.Dump(s.ws, meta, nil)
	if err != nil {
		return nil, err
	}

	data, err := m.opts.Codec.Pack(ctx, s.ws, s.password)
	if err != nil {
		return nil, packError(err)
	}
	if err := m.writeArchive(ctx, s.loc.WorkingPath, data); err != nil {
		return nil, err
	}

	s.meta = meta
	s.layout = layout
	s.records = make(map[string]store.Credential)
	s.open = true

	return s.copyBackLocked(ctx), nil
}

// load decrypts the archive into a fresh workspace and reads it.
func (s *Session) load(ctx context.Context) (err error) {
	m := s.manager

	s.loc, err = m.opts.Resolver.Resolve(ctx, s.display, m.opts.TempRoot, true)
	if err != nil {
		return classifyFileError(s.display, err)
	}
	if err := preCheck(s.loc.WorkingPath); err != nil {
		return err
	}

	data, err := m.readArchive(ctx, s.loc.WorkingPath)
	if err != nil {
		return err
	}

	s.ws, err = m.newWorkspace()
	if err != nil {
		return err
	}
	if err := m.opts.Codec.Unpack(ctx, data, s.password, s.ws); err != nil {
		return classifyCodecError(s.display, err)
	}

	meta, records, layout, err := store.Load(s.ws)
	if err != nil {
		return err
	}
	if err := store.CheckCount(meta, records); err != nil {
		return err
	}

	s.meta = meta
	s.layout = layout
	s.records = make(map[string]store.Credential, len(records))
	for _, rec := range records {
		s.records[rec.ID] = rec
	}
	s.open = true
	m.opts.Log.Debugf("Loaded %d credential(s) from %s using the %s layout", len(records), s.display, layout)
	return nil
}

func packError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: packing archive: %v", kerrors.ErrIO, err)
}

func (s *Session) checkOpen() error {
	if !s.open {
		return kerrors.ErrRepositoryClosed
	}
	return nil
}

func (s *Session) wipePassword() {
	for i := range s.password {
		s.password[i] = 0
	}
	s.password = nil
}

// teardownLocked releases everything the session holds. Safe to call on a
// session that never finished opening and more than once.
func (s *Session) teardownLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.open = false
	s.wipePassword()
	s.records = nil

	var err error
	if s.ws != nil {
		err = s.ws.Destroy()
		s.ws = nil
	}

	if s.loc != nil {
		if s.copyBackPending {
			s.manager.opts.Log.WarnfAlways("Keeping unsynced copy of %s at %s", s.display, s.loc.WorkingPath)
		} else {
			s.loc.Cleanup()
		}
	}

	s.manager.opts.Slot.Release(s)
	return err
}

// discard tears down a session whose caller stopped waiting for it.
func (s *Session) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.manager.opts.Log.Warnf("Discarding abandoned session for %s", s.display)
	}
	s.teardownLocked()
}

// Close zeroes the password, discards the records and destroys the
// workspace. Closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	wasOpen := s.open
	count := len(s.records)
	err := s.teardownLocked()
	s.mu.Unlock()

	if wasOpen {
		m := s.manager
		entry := audit.NewEntry(audit.OpClose, s.display)
		entry.Count = count
		entry.Error = kerrors.Kind(err)
		m.opts.Audit.Log(entry)
		m.opts.Metrics.SetCredentials(0)
		m.opts.Log.Debugf("Closed %s", s.display)
	}
	if err != nil {
		return &kerrors.OpError{Op: audit.OpClose, Path: s.display, Err: err}
	}
	return nil
}

// Save writes the in-memory credentials back to the archive.
//
// Record files of deleted credentials are removed from the workspace, the
// workspace is packed and the archive replaced atomically. If packing fails
// the existing archive is left as it was. When the archive is staged and
// the copy back fails, the returned error matches kerrors.ErrCopyBackFailed;
// the local copy is kept and RetryCopyBack can be used.
func (s *Session) Save(ctx context.Context) error {
	start := time.Now()
	m := s.manager
	_, err := bounded(ctx, m.opts.OperationTimeout, audit.OpSave, func(ctx context.Context) (struct{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return struct{}{}, s.saveLocked(ctx, s.password)
	}, nil)
	if err != nil {
		err = &kerrors.OpError{Op: audit.OpSave, Path: s.display, Err: err}
	}
	m.finish(audit.OpSave, s.display, start, s, err)
	return err
}

func (s *Session) saveLocked(ctx context.Context, password []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	m := s.manager

	meta := s.meta
	meta.LastModified = m.now().UTC()
	records := s.sortedLocked()

	layout, err := store.Dump(s.ws, meta, records)
	if err != nil {
		return err
	}
	meta.CredentialCount = len(records)

	data, err := m.opts.Codec.Pack(ctx, s.ws, password)
	if err != nil {
		return packError(err)
	}
	if err := m.writeArchive(ctx, s.loc.WorkingPath, data); err != nil {
		return err
	}

	s.meta = meta
	s.layout = layout
	s.modified = false
	return s.copyBackLocked(ctx)
}

func (s *Session) copyBackLocked(ctx context.Context) error {
	if !s.loc.Staged() {
		return nil
	}
	if err := s.loc.CopyBack(ctx); err != nil {
		s.copyBackPending = true
		s.manager.opts.Log.WarnfAlways("Saved to %s but could not update %s: %v", s.loc.WorkingPath, s.display, err)
		return err
	}
	s.copyBackPending = false
	return nil
}

// RetryCopyBack repeats only the copy of the saved archive to its display
// location. It is a no-op for unstaged archives and when nothing is pending.
func (s *Session) RetryCopyBack(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loc == nil || !s.copyBackPending {
		return nil
	}
	if err := s.loc.CopyBack(ctx); err != nil {
		return err
	}
	s.copyBackPending = false
	s.manager.opts.Log.Infof("Copied %s back to %s", s.loc.WorkingPath, s.display)
	return nil
}

// CopyBackPending reports whether the last save has not reached the display location.
func (s *Session) CopyBackPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyBackPending
}

// ChangePassword re-encrypts the archive with newPassword and saves it. The
// old password stays in effect if the archive could not be written.
func (s *Session) ChangePassword(ctx context.Context, newPassword []byte) error {
	start := time.Now()
	m := s.manager

	err := m.CheckPassword(newPassword)
	if err == nil {
		_, err = bounded(ctx, m.opts.OperationTimeout, audit.OpChangePassword, func(ctx context.Context) (struct{}, error) {
			s.mu.Lock()
			defer s.mu.Unlock()

			next := append([]byte(nil), newPassword...)
			err := s.saveLocked(ctx, next)
			if err != nil && !kerrors.IsWarning(err) {
				for i := range next {
					next[i] = 0
				}
				return struct{}{}, err
			}
			s.wipePassword()
			s.password = next
			return struct{}{}, err
		}, nil)
	}
	if err != nil {
		err = &kerrors.OpError{Op: audit.OpChangePassword, Path: s.display, Err: err}
	}
	m.finish(audit.OpChangePassword, s.display, start, s, err)
	return err
}

// AddCredential stores c in memory and returns its id. An empty id is
// replaced by a new uuid. Timestamps left zero are set to now.
func (s *Session) AddCredential(c store.Credential) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	c = c.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := s.records[c.ID]; exists {
		return "", fmt.Errorf("%w: %s", kerrors.ErrDuplicateID, c.ID)
	}

	now := s.manager.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return "", err
	}

	s.records[c.ID] = c
	s.modified = true
	return c.ID, nil
}

// UpdateField sets one field of credential id, creating the field when it
// does not exist. New fields are typed password when sensitive, text
// otherwise.
func (s *Session) UpdateField(id, name, value string, sensitive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: credential %s", kerrors.ErrNotFound, id)
	}
	rec = rec.Clone()

	field, exists := rec.Fields[name]
	if !exists {
		field.FieldType = store.FieldText
		if sensitive {
			field.FieldType = store.FieldPassword
		}
	}
	field.Value = value
	field.Sensitive = sensitive
	rec.Fields[name] = field
	rec.UpdatedAt = s.manager.now()

	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return err
	}
	s.records[id] = rec
	s.modified = true
	return nil
}

// UpdateCredential replaces the stored credential with the same id. The
// creation time is kept when c does not carry one.
func (s *Session) UpdateCredential(c store.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	existing, ok := s.records[c.ID]
	if !ok {
		return fmt.Errorf("%w: credential %s", kerrors.ErrNotFound, c.ID)
	}

	c = c.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = existing.CreatedAt
	}
	c.UpdatedAt = s.manager.now()
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	s.records[c.ID] = c
	s.modified = true
	return nil
}

func (s *Session) DeleteCredential(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: credential %s", kerrors.ErrNotFound, id)
	}
	delete(s.records, id)
	s.modified = true
	return nil
}

// Credential returns a copy of credential id.
func (s *Session) Credential(id string) (store.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return store.Credential{}, err
	}

	rec, ok := s.records[id]
	if !ok {
		return store.Credential{}, fmt.Errorf("%w: credential %s", kerrors.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// ListCredentials returns copies of all credentials sorted by id. A closed
// session yields an empty list.
func (s *Session) ListCredentials() []store.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Session) sortedLocked() []store.Credential {
	out := make([]store.Credential, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	store.SortByID(out)
	return out
}

func (s *Session) Metadata() store.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

func (s *Session) Layout() store.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Modified reports unsaved in-memory changes.
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// DisplayPath is the archive path as given to Create or Open.
func (s *Session) DisplayPath() string {
	return s.display
}

// WorkingPath is the local file the codec reads and writes.
func (s *Session) WorkingPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc == nil {
		return s.display
	}
	return s.loc.WorkingPath
}

func (s *Session) stats() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), string(s.layout)
}
