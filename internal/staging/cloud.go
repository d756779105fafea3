package staging

import (
	"path/filepath"
	"strings"
)

var cloudSegments = []string{
	"/android/data/com.google.android.apps.docs",
	"/android/data/com.dropbox.android",
	"/android/data/com.microsoft.skydrive",
	"/android/data/com.box.android",
	"/android/data/com.amazon.clouddrive",
	"/android/data/com.nextcloud.client",
	"/dropbox/",
	"/google drive/",
	"/googledrive/",
	"/my drive/",
	"/onedrive/",
	"/icloud/",
	"/icloud drive/",
	"/library/mobile documents/",
	"/library/cloudstorage/",
	"/box sync/",
	"/box/",
	"/nextcloud/",
}

// IsCloudSyncPath reports whether path appears to live inside a folder
// managed by a cloud-sync client.
func IsCloudSyncPath(path string) bool {
	p := strings.ToLower(filepath.ToSlash(path))
	p = strings.ReplaceAll(p, `\`, "/")
	for _, segment := range cloudSegments {
		if strings.Contains(p, segment) {
			return true
		}
	}
	return false
}
