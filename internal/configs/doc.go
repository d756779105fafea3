// Package configs manages user configuration for lockbox.
//
// Configuration is stored in TOML format at a single level, the user
// config file:
//
//   - $XDG_CONFIG_HOME/lockbox/config.toml (os.UserConfigDir on other platforms)
//   - or the file named by LOCKBOX_CONFIG
//
// A missing file means Default(). Values that would weaken the repository
// guarantees, such as a minimum password length below 8, are rejected by
// Validate.
//
// # Example
//
//	backend = "hybrid"
//	operation_timeout = "30s"
//	lock_timeout = "30s"
//	min_password_length = 12
//	audit = true
//
//	[backup]
//	enabled = true
//	count = 3
//	dir = "~/vault-backups"
//
//	[argon2]
//	time = 3
//	memory_kib = 65536
//	threads = 4
//
// # Paths
//
// ResolvePaths returns the config file location together with the data
// directory that holds the audit log.
package configs
