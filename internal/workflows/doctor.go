package workflows

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/PolarWolf314/lockbox/internal/configs"
	"github.com/PolarWolf314/lockbox/internal/lockfile"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

// Severity grades a doctor finding.
type Severity string

const (
	SeverityOK   Severity = "ok"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// Doctor scopes.
const (
	ScopeSetup   = "setup"
	ScopeArchive = "archive"
)

// Finding is the outcome of one health check.
type Finding struct {
	Scope    string   `json:"scope"`
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
	Fix      string   `json:"fix,omitempty"`
}

// DoctorResult lists findings in the order the checks ran.
type DoctorResult struct {
	Archive  string    `json:"archive,omitempty"`
	Findings []Finding `json:"findings"`
}

// Count returns how many findings have severity sev.
func (r *DoctorResult) Count(sev Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// ExitCode is 2 when any check failed, 1 when any warned and 0 otherwise.
func (r *DoctorResult) ExitCode() int {
	switch {
	case r.Count(SeverityFail) > 0:
		return 2
	case r.Count(SeverityWarn) > 0:
		return 1
	}
	return 0
}

// InScope returns the findings of one scope.
func (r *DoctorResult) InScope(scope string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Scope == scope {
			out = append(out, f)
		}
	}
	return out
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	// Archive, when set, adds the archive scope.
	Archive string
}

type doctorCheck struct {
	scope string
	name  string
	run   func(env *Env, archive string) Finding
}

var doctorChecks = []doctorCheck{
	{ScopeSetup, "config", checkUserConfig},
	{ScopeSetup, "temp root", checkTempRoot},
	{ScopeSetup, "workspaces", checkStaleWorkspaces},
	{ScopeSetup, "audit log", checkAuditLog},
	{ScopeArchive, "file", checkArchiveFile},
	{ScopeArchive, "lock", checkArchiveLock},
	{ScopeArchive, "backups", checkBackups},
}

// Doctor runs the setup checks, and the archive checks when opts.Archive is
// set. No passphrase is needed and nothing is modified.
func Doctor(env *Env, opts DoctorOptions) (*DoctorResult, error) {
	result := &DoctorResult{Archive: opts.Archive}
	for _, c := range doctorChecks {
		if c.scope == ScopeArchive && opts.Archive == "" {
			continue
		}
		f := c.run(env, opts.Archive)
		f.Scope, f.Check = c.scope, c.name
		env.Log.Debugf("doctor %s/%s: %s %s", c.scope, c.name, f.Severity, f.Detail)
		result.Findings = append(result.Findings, f)
	}
	return result, nil
}

func pass(format string, args ...any) Finding {
	return Finding{Severity: SeverityOK, Detail: fmt.Sprintf(format, args...)}
}

func warnf(fix, format string, args ...any) Finding {
	return Finding{Severity: SeverityWarn, Detail: fmt.Sprintf(format, args...), Fix: fix}
}

func failf(fix, format string, args ...any) Finding {
	return Finding{Severity: SeverityFail, Detail: fmt.Sprintf(format, args...), Fix: fix}
}

// checkUserConfig checks that the config file, if present, parses cleanly.
func checkUserConfig(env *Env, _ string) Finding {
	path := env.Paths.ConfigFile
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return pass("no config file, using defaults")
	}

	_, unknown, err := configs.Load(path)
	switch {
	case err != nil:
		return failf(fmt.Sprintf("Fix or remove %s", path), "invalid: %v", err)
	case len(unknown) > 0:
		return warnf("Check the keys for typos with 'lockbox config show'", "unknown keys %v", unknown)
	}
	return pass("%s", path)
}

// checkTempRoot creates and destroys a workspace under the temp root.
func checkTempRoot(env *Env, _ string) Finding {
	root := env.TempRoot()
	ws, err := workspace.CreateUnique(root, env.Log)
	if err != nil {
		return failf("Set temp_root in the config to a writable directory", "cannot create a workspace in %s: %v", root, err)
	}
	_ = ws.Destroy()
	return pass("%s is writable", root)
}

// checkStaleWorkspaces reports plaintext left behind by crashed processes.
func checkStaleWorkspaces(env *Env, _ string) Finding {
	stale, err := workspace.FindStale(env.TempRoot())
	switch {
	case err != nil:
		return warnf("", "scan failed: %v", err)
	case len(stale) > 0:
		return warnf("Run 'lockbox clean' to remove them", "%d stale workspace(s) hold decrypted data", len(stale))
	}
	return pass("none left by crashed runs")
}

// checkAuditLog checks the audit log is private to the user.
func checkAuditLog(env *Env, _ string) Finding {
	if !env.Config.Audit {
		return pass("disabled")
	}

	info, err := os.Stat(env.Paths.AuditFile)
	switch {
	case os.IsNotExist(err):
		return pass("no entries yet")
	case err != nil:
		return failf("", "cannot stat %s: %v", env.Paths.AuditFile, err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return warnf(fmt.Sprintf("Run 'chmod 600 %s'", env.Paths.AuditFile), "readable by others (%04o)", mode)
	}
	return pass("private, %s", humanize.Bytes(uint64(info.Size())))
}

// checkArchiveFile checks the archive exists, is non-empty and is private.
func checkArchiveFile(_ *Env, path string) Finding {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return failf("Run 'lockbox create' to create a repository", "%s not found", path)
	case err != nil:
		return failf("", "cannot stat: %v", err)
	case info.Size() == 0:
		return failf("Restore the archive from a backup with 'lockbox backups'", "empty")
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return warnf(fmt.Sprintf("Run 'chmod 600 %s'", path), "readable by others (%04o)", mode)
	}
	return pass("private, %s", humanize.Bytes(uint64(info.Size())))
}

// checkArchiveLock reports a lock held on the archive.
func checkArchiveLock(env *Env, path string) Finding {
	info, err := lockfile.NewManager(lockfile.DefaultLease, env.Log).Status(path)
	switch {
	case err != nil:
		return warnf("", "lock file is unreadable: %v", err)
	case info == nil:
		return pass("not locked")
	case info.Expired(time.Now()):
		return warnf("The next operation takes over the expired lock", "expired lock of pid %d on %s", info.PID, info.Host)
	}
	return warnf("", "held by pid %d on %s since %s", info.PID, info.Host, humanize.Time(info.AcquiredAt))
}

// checkBackups reports the newest backup of the archive.
func checkBackups(env *Env, path string) Finding {
	latest, found := backupsFor(env).Latest(path)
	switch {
	case found:
		return pass("latest %s (%s)", filepath.Base(latest.Path), humanize.Time(latest.Created))
	case !env.Config.Backup.Enabled:
		return warnf("Enable [backup] in the config to keep copies before each save", "backups are disabled")
	}
	return pass("none yet")
}
