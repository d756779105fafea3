package repository

import (
	"strings"

	"github.com/PolarWolf314/lockbox/internal/store"
)

// RedactedValue replaces sensitive field values in Redacted.
const RedactedValue = "[REDACTED]"

// Query filters credentials. Empty criteria match everything; non-empty
// ones must all match.
type Query struct {
	// Text matches case-insensitively against title, notes and tags.
	Text string
	Tag  string
	Type string
}

func (q Query) matches(c store.Credential) bool {
	if q.Tag != "" && !c.HasTag(q.Tag) {
		return false
	}
	if q.Type != "" && !strings.EqualFold(c.CredentialType, q.Type) {
		return false
	}
	if q.Text == "" {
		return true
	}

	needle := strings.ToLower(q.Text)
	if strings.Contains(strings.ToLower(c.Title), needle) || strings.Contains(strings.ToLower(c.Notes), needle) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Search returns copies of the matching credentials sorted by id.
func (s *Session) Search(q Query) []store.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Credential
	for _, rec := range s.sortedLocked() {
		if q.matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Redacted returns a copy of c that is safe to log.
func Redacted(c store.Credential) store.Credential {
	out := c.Clone()
	for name, f := range out.Fields {
		if f.Sensitive {
			f.Value = RedactedValue
			out.Fields[name] = f
		}
	}
	return out
}
