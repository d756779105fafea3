// Package codec turns a workspace into an encrypted archive and back.
//
// The repository depends only on the Codec interface. Every failure is a
// *errors.CodecError whose kind separates a wrong passphrase from a damaged
// or foreign file.
//
// # Sealed Format
//
// Sealed is the archive codec used by lockbox. An archive is a fixed
// header followed by a secretbox-sealed, gzip-compressed tar stream:
//
//	magic      4 bytes  "LBXA"
//	version    1 byte   1
//	time       4 bytes  argon2id passes, big endian
//	memory     4 bytes  argon2id memory in KiB, big endian
//	threads    1 byte   argon2id parallelism
//	salt      16 bytes
//	verifier  32 bytes  second half of the argon2id output
//	nonce     24 bytes
//	sealed     rest     secretbox(gzip(tar))
//
// The first half of the argon2id output is the secretbox key. Because the
// verifier is checked before the box is opened, a wrong passphrase is
// reported as CodecBadPassword while a damaged body with a correct
// passphrase is reported as CodecCorrupt.
//
// Tar entries are written in sorted order with a fixed modification time,
// so packing the same workspace twice yields the same plaintext stream.
//
// # Cancellation
//
// Pack and Unpack check the context once before any work starts. After
// that they run to completion, a half-written archive or workspace is never
// the result of cancellation.
package codec
