// Package staging maps an archive's display location to a local working
// file the codec can read and write.
//
// Most archives are plain local files and their WorkingPath equals their
// DisplayPath. Two kinds of location are staged instead:
//
//   - references with a registered scheme, such as content://..., read and
//     written only through a Handle;
//   - local files inside a cloud-sync folder (Dropbox, Google Drive,
//     OneDrive, iCloud, Nextcloud, Box), where a sync client may observe a
//     file while it is being replaced.
//
// A staged Location copies the remote bytes into a private working file.
// CopyBack writes the working file back through the handle after checking
// that the remote content still matches what was staged.
package staging
