package audit

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PolarWolf314/lockbox/internal/utils"
)

// Operation names recorded in the trail.
const (
	OpCreate         = "create"
	OpOpen           = "open"
	OpSave           = "save"
	OpClose          = "close"
	OpChangePassword = "change-password"
	OpVerify         = "verify"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // OS user performing the action.
	Operation string `json:"op"`   // Operation name.
	Archive   string `json:"archive"`

	// Optional fields depending on operation.
	Count  int    `json:"count,omitempty"`  // Credential count after the operation.
	Layout string `json:"layout,omitempty"` // Record layout written or read.
	Error  string `json:"error,omitempty"`  // Error kind when the operation failed.
}

// Trail appends entries to a JSON Lines file. A nil Trail or one with an
// empty Path records nothing.
type Trail struct {
	Path string

	mu sync.Mutex
}

func NewTrail(path string) *Trail {
	return &Trail{Path: path}
}

// NewEntry returns an entry for op with the current user filled in.
func NewEntry(op, archive string) Entry {
	entry := Entry{Operation: op, Archive: archive}
	if user, err := utils.GetUsername(); err == nil {
		entry.User = user
	}
	return entry
}

// Log appends an entry to the audit log.
// If logging fails it returns silently. Operations should not fail just
// because audit logging failed.
func (t *Trail) Log(entry Entry) {
	if t == nil || t.Path == "" {
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(t.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func (t *Trail) ReadEntries() ([]Entry, error) {
	if t == nil || t.Path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Partial writes from a crashed process.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
