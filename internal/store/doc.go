// Package store defines the credential data model and converts it to and
// from the file layout kept inside an extraction workspace.
//
// # Layout
//
//	metadata.yml                       repository metadata
//	layout.yml                         which record layout the last Dump used
//	credentials/<id>/record.yml        one record per credential (nested)
//	credentials_<id>_record.yml        one record per credential (flat)
//
// Dump prefers the nested layout. When the workspace rejects the nested
// directories with a structural path error it switches the whole call to
// the flat layout and records that choice in layout.yml. Load reads the
// marker and accepts either layout, so archives written on either kind of
// filesystem round-trip.
//
// Metadata is written last and its credential count is always the number
// of record files Dump wrote. CheckCount verifies the same invariant after
// a Load.
package store
