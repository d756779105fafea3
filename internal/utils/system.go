package utils

import (
	"os"
	"os/user"
)

// GetUsername returns the current username, falling back to $USER when the
// account database cannot be read (static binaries in minimal containers).
func GetUsername() (string, error) {
	u, err := user.Current()
	if err == nil && u.Username != "" {
		return u.Username, nil
	}
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	return "", err
}

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	return os.Hostname()
}
