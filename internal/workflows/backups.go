package workflows

import (
	"github.com/PolarWolf314/lockbox/internal/backup"
)

// backupsFor returns the backup manager for the configured backup directory,
// even when backups are disabled, so existing backups can still be listed.
func backupsFor(env *Env) *backup.Manager {
	return backup.NewManager(env.Config.Backup.Dir, env.Config.Backup.Count, env.Log)
}

// Backups lists the backups of an archive, newest first.
func Backups(env *Env, path string) ([]backup.Info, error) {
	return backupsFor(env).List(path)
}

// LatestBackup returns the newest backup path of an archive or "".
func LatestBackup(env *Env, path string) string {
	if latest, ok := backupsFor(env).Latest(path); ok {
		return latest.Path
	}
	return ""
}
