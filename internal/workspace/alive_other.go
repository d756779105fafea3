//go:build !unix

package workspace

import "time"

func isStale(_ int, modified time.Time) bool {
	return time.Since(modified) > staleAge
}
