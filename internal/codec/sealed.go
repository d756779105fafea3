package codec

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

const (
	version     = 1
	saltSize    = 16
	keySize     = 32
	nonceSize   = 24
	headerSize  = 4 + 1 + 4 + 4 + 1 + saltSize + keySize + nonceSize
	maxEntry    = 64 << 20
	maxTime     = 64
	maxMemory   = 1 << 20
	maxArchived = 10000
)

var magic = [4]byte{'L', 'B', 'X', 'A'}

var epoch = time.Unix(0, 0)

// Params are the argon2id costs used when packing.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultParams are the argon2id costs recommended for interactive use.
var DefaultParams = Params{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}

// Sealed is the lockbox archive codec.
type Sealed struct {
	Params Params
}

var _ Codec = (*Sealed)(nil)

func NewSealed(p Params) *Sealed {
	return &Sealed{Params: p}
}

func (s *Sealed) Pack(ctx context.Context, src workspace.Workspace, password []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plaintext, err := tarWorkspace(src)
	if err != nil {
		return nil, err
	}
	defer wipe(plaintext)

	return s.seal(plaintext, password)
}

func (s *Sealed) seal(plaintext, password []byte) ([]byte, error) {
	var salt [saltSize]byte
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return nil, kerrors.NewCodecError(kerrors.CodecIO, "reading random salt: %v", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, kerrors.NewCodecError(kerrors.CodecIO, "reading random nonce: %v", err)
	}

	key, verifier := deriveKeys(password, salt[:], s.Params)
	defer wipe(key[:])

	out := make([]byte, 0, headerSize+len(plaintext)+secretbox.Overhead)
	out = append(out, magic[:]...)
	out = append(out, version)
	out = binary.BigEndian.AppendUint32(out, s.Params.Time)
	out = binary.BigEndian.AppendUint32(out, s.Params.MemoryKiB)
	out = append(out, s.Params.Threads)
	out = append(out, salt[:]...)
	out = append(out, verifier...)
	out = append(out, nonce[:]...)

	return secretbox.Seal(out, plaintext, &nonce, key), nil
}

func (s *Sealed) Unpack(ctx context.Context, data []byte, password []byte, dst workspace.Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(data) < len(magic) {
		return kerrors.NewCodecError(kerrors.CodecTruncated, "archive is %d bytes", len(data))
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return kerrors.NewCodecError(kerrors.CodecUnsupportedFormat, "not a lockbox archive")
	}
	if len(data) < len(magic)+1 {
		return kerrors.NewCodecError(kerrors.CodecTruncated, "archive header is incomplete")
	}
	if v := data[len(magic)]; v != version {
		return kerrors.NewCodecError(kerrors.CodecUnsupportedFormat, "archive version %d", v)
	}
	if len(data) < headerSize+secretbox.Overhead {
		return kerrors.NewCodecError(kerrors.CodecTruncated, "archive is %d bytes, header alone needs %d", len(data), headerSize+secretbox.Overhead)
	}

	off := len(magic) + 1
	p := Params{
		Time:      binary.BigEndian.Uint32(data[off:]),
		MemoryKiB: binary.BigEndian.Uint32(data[off+4:]),
		Threads:   data[off+8],
	}
	off += 9
	if p.Time == 0 || p.Time > maxTime || p.Threads == 0 || p.MemoryKiB < 8*uint32(p.Threads) || p.MemoryKiB > maxMemory {
		return kerrors.NewCodecError(kerrors.CodecCorrupt, "implausible key derivation parameters %+v", p)
	}

	salt := data[off : off+saltSize]
	off += saltSize
	storedVerifier := data[off : off+keySize]
	off += keySize
	var nonce [nonceSize]byte
	copy(nonce[:], data[off:off+nonceSize])
	off += nonceSize

	key, verifier := deriveKeys(password, salt, p)
	defer wipe(key[:])

	if subtle.ConstantTimeCompare(verifier, storedVerifier) != 1 {
		return kerrors.NewCodecError(kerrors.CodecBadPassword, "passphrase does not match archive")
	}

	plaintext, ok := secretbox.Open(nil, data[off:], &nonce, key)
	if !ok {
		return kerrors.NewCodecError(kerrors.CodecCorrupt, "archive body failed authentication")
	}
	defer wipe(plaintext)

	return untarWorkspace(plaintext, dst)
}

func deriveKeys(password, salt []byte, p Params) (*[keySize]byte, []byte) {
	material := argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, 2*keySize)
	var key [keySize]byte
	copy(key[:], material[:keySize])
	verifier := append([]byte(nil), material[keySize:]...)
	wipe(material)
	return &key, verifier
}

func tarWorkspace(src workspace.Workspace) ([]byte, error) {
	names, err := src.List()
	if err != nil {
		return nil, kerrors.NewCodecError(kerrors.CodecIO, "listing workspace: %v", err)
	}

	var buf bytes.Buffer
	gzWriter, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, kerrors.NewCodecError(kerrors.CodecIO, "creating gzip writer: %v", err)
	}
	tarWriter := tar.NewWriter(gzWriter)

	for _, name := range names {
		content, err := src.ReadFile(name)
		if err != nil {
			return nil, kerrors.NewCodecError(kerrors.CodecIO, "reading %s: %v", name, err)
		}

		header := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0600,
			Size:     int64(len(content)),
			ModTime:  epoch,
			Format:   tar.FormatPAX,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return nil, kerrors.NewCodecError(kerrors.CodecIO, "writing tar header for %s: %v", name, err)
		}
		if _, err := tarWriter.Write(content); err != nil {
			return nil, kerrors.NewCodecError(kerrors.CodecIO, "writing %s: %v", name, err)
		}
		wipe(content)
	}

	if err := tarWriter.Close(); err != nil {
		return nil, kerrors.NewCodecError(kerrors.CodecIO, "closing tar stream: %v", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, kerrors.NewCodecError(kerrors.CodecIO, "closing gzip stream: %v", err)
	}
	return buf.Bytes(), nil
}

func untarWorkspace(plaintext []byte, dst workspace.Workspace) error {
	gzReader, err := gzip.NewReader(bytes.NewReader(plaintext))
	if err != nil {
		return kerrors.NewCodecError(kerrors.CodecCorrupt, "creating gzip reader: %v", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for count := 0; ; count++ {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return kerrors.NewCodecError(kerrors.CodecCorrupt, "reading tar header: %v", err)
		}
		if count >= maxArchived {
			return kerrors.NewCodecError(kerrors.CodecCorrupt, "archive holds more than %d entries", maxArchived)
		}

		if header.Typeflag == tar.TypeDir {
			continue
		}
		if header.Typeflag != tar.TypeReg {
			return kerrors.NewCodecError(kerrors.CodecCorrupt, "unexpected entry type %q for %s", header.Typeflag, header.Name)
		}
		// Rejects absolute names and any ".." element.
		if !fs.ValidPath(header.Name) {
			return kerrors.NewCodecError(kerrors.CodecCorrupt, "invalid file path in archive: %s", header.Name)
		}
		if header.Size > maxEntry {
			return kerrors.NewCodecError(kerrors.CodecCorrupt, "entry %s is %d bytes", header.Name, header.Size)
		}

		content, err := io.ReadAll(tarReader)
		if err != nil {
			return kerrors.NewCodecError(kerrors.CodecCorrupt, "reading %s: %v", header.Name, err)
		}
		err = dst.WriteFile(header.Name, content)
		wipe(content)
		if err != nil {
			return kerrors.NewCodecError(kerrors.CodecIO, "extracting %s: %v", header.Name, err)
		}
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
