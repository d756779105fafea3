package workflows

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/PolarWolf314/lockbox/internal/audit"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

// timestampLayout is the layout audit entries are written with.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// LogOptions selects audit entries. Zero values do not filter.
type LogOptions struct {
	// Limit keeps only the most recent Limit entries.
	Limit int
	// Reverse lists the most recent entry first.
	Reverse bool

	User    string
	Archive string
	// Operations is a comma-separated list such as "save,change-password".
	Operations string
	// Since and Until are inclusive days in YYYY-MM-DD form.
	Since string
	Until string
}

// LogResult holds the selected entries.
type LogResult struct {
	Entries []audit.Entry
	// TotalEntriesBeforeFilter counts every entry in the trail.
	TotalEntriesBeforeFilter int
}

// Log reads the audit trail and returns the entries matching opts. The trail
// is read even when recording is disabled, so earlier history stays visible.
//
// Returns ErrInvalidDateFormat for a malformed --since or --until day and
// ErrNotFound when nothing has been recorded yet.
func Log(env *Env, opts LogOptions) (*LogResult, error) {
	match, err := opts.matcher()
	if err != nil {
		return nil, err
	}

	trail := env.Audit
	if trail == nil {
		trail = audit.NewTrail(env.Paths.AuditFile)
	}
	entries, err := trail.ReadEntries()
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: no audit log at %s", kerrors.ErrNotFound, trail.Path)
	}

	var kept []audit.Entry
	for _, e := range entries {
		if match(e) {
			kept = append(kept, e)
		}
	}
	return &LogResult{
		Entries:                  newest(kept, opts.Limit, opts.Reverse),
		TotalEntriesBeforeFilter: len(entries),
	}, nil
}

// matcher combines the set filters into one predicate.
func (o LogOptions) matcher() (func(audit.Entry) bool, error) {
	var preds []func(audit.Entry) bool

	if o.User != "" {
		preds = append(preds, func(e audit.Entry) bool { return strings.EqualFold(e.User, o.User) })
	}
	if o.Archive != "" {
		want := filepath.Clean(o.Archive)
		preds = append(preds, func(e audit.Entry) bool { return filepath.Clean(e.Archive) == want })
	}
	if o.Operations != "" {
		ops := make(map[string]bool)
		for _, op := range strings.Split(o.Operations, ",") {
			ops[strings.ToLower(strings.TrimSpace(op))] = true
		}
		preds = append(preds, func(e audit.Entry) bool { return ops[strings.ToLower(e.Operation)] })
	}
	if o.Since != "" {
		since, err := parseDay("--since", o.Since)
		if err != nil {
			return nil, err
		}
		preds = append(preds, func(e audit.Entry) bool {
			at, ok := EntryTime(e)
			return ok && !at.Before(since)
		})
	}
	if o.Until != "" {
		until, err := parseDay("--until", o.Until)
		if err != nil {
			return nil, err
		}
		end := until.Add(24*time.Hour - time.Nanosecond)
		preds = append(preds, func(e audit.Entry) bool {
			at, ok := EntryTime(e)
			return ok && !at.After(end)
		})
	}

	return func(e audit.Entry) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}, nil
}

func parseDay(flag, value string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q, use YYYY-MM-DD", kerrors.ErrInvalidDateFormat, flag, value)
	}
	return day, nil
}

// newest keeps the last n entries (all when n <= 0), newest first when
// reverse is set.
func newest(entries []audit.Entry, n int, reverse bool) []audit.Entry {
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	if reverse {
		slices.Reverse(entries)
	}
	return entries
}

// EntryTime parses the entry timestamp, accepting plain RFC3339 as well.
func EntryTime(e audit.Entry) (time.Time, bool) {
	t, err := time.Parse(timestampLayout, e.Timestamp)
	if err != nil {
		t, err = time.Parse(time.RFC3339, e.Timestamp)
	}
	return t, err == nil
}

// Summarize describes the repository state an entry recorded, for example
// "3 credentials, nested".
func Summarize(e audit.Entry) string {
	var parts []string
	if e.Count > 0 || e.Operation == audit.OpCreate {
		parts = append(parts, fmt.Sprintf("%d %s", e.Count, plural(e.Count, "credential")))
	}
	if e.Layout != "" {
		parts = append(parts, e.Layout)
	}
	if e.Error != "" {
		parts = append(parts, "failed: "+e.Error)
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
