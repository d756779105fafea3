package workspace

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	logger "github.com/PolarWolf314/lockbox/internal/logging"
)

// staleAge bounds how long a workspace may survive on platforms where the
// owning process cannot be checked.
const staleAge = 24 * time.Hour

// FindStale lists workspace directories under root whose owning process
// has exited. Workspaces of the current process are never reported.
func FindStale(root string) ([]string, error) {
	if root == "" {
		root = os.TempDir()
	}

	matches, err := filepath.Glob(filepath.Join(root, Prefix+"*"))
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, dir := range matches {
		pid, ok := ownerPID(filepath.Base(dir))
		if !ok || pid == os.Getpid() {
			continue
		}

		info, err := os.Lstat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if isStale(pid, info.ModTime()) {
			stale = append(stale, dir)
		}
	}
	return stale, nil
}

// SweepStale removes the directories FindStale reports and returns the ones
// it removed.
func SweepStale(root string, log logger.Logger) ([]string, error) {
	stale, err := FindStale(root)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, dir := range stale {
		if err := os.RemoveAll(dir); err != nil {
			log.WarnfAlways("Could not remove stale workspace %s: %v", dir, err)
			continue
		}
		log.Infof("Removed stale workspace %s", dir)
		removed = append(removed, dir)
	}
	return removed, nil
}

// ownerPID parses the process id out of "lockbox-ws-<pid>-<nanos>-<suffix>".
func ownerPID(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, Prefix)
	if !ok {
		return 0, false
	}
	pidText, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}
	pid, err := strconv.Atoi(pidText)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
