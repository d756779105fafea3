// Package workspace manages the private area that holds the plaintext
// contents of an open repository.
//
// Two implementations satisfy Workspace:
//
//   - Dir: a uniquely named 0700 directory under a temp root, created with
//     CreateUnique. Names combine the process id, a nanosecond timestamp and
//     a random suffix, and Mkdir refuses an existing name, so a workspace is
//     never reused.
//   - Memory: a map of files that never touches the disk, used by the
//     legacy backend.
//
// Paths passed to a Workspace are slash-separated and relative to its root.
//
// Destroy is idempotent. A Dir that is already gone is treated as
// destroyed; a partial removal is logged as a warning and reported as an
// error because residual plaintext is a security concern.
//
// SweepStale removes workspaces left behind by processes that died without
// running their cleanup.
package workspace
