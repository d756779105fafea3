package codec

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

var fastParams = Params{Time: 1, MemoryKiB: 64, Threads: 1}

var password = []byte("Str0ng!Pass")

func sampleWorkspace(t *testing.T) *workspace.Memory {
	t.Helper()
	ws := workspace.NewMemory()
	require.NoError(t, ws.WriteFile("metadata.yml", []byte("credential_count: 1\n")))
	require.NoError(t, ws.WriteFile("credentials/c1/record.yml", []byte("id: c1\n")))
	return ws
}

func requireCodecKind(t *testing.T, err error, kind kerrors.CodecKind) {
	t.Helper()
	var cerr *kerrors.CodecError
	require.True(t, errors.As(err, &cerr), "expected CodecError, got %v", err)
	assert.Equal(t, kind, cerr.Kind, "unexpected kind for %v", err)
}

func packSample(t *testing.T) []byte {
	t.Helper()
	data, err := NewSealed(fastParams).Pack(context.Background(), sampleWorkspace(t), password)
	require.NoError(t, err)
	return data
}

func TestRoundTrip(t *testing.T) {
	data := packSample(t)

	dst := workspace.NewMemory()
	require.NoError(t, NewSealed(fastParams).Unpack(context.Background(), data, password, dst))

	names, err := dst.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"credentials/c1/record.yml", "metadata.yml"}, names)

	content, err := dst.ReadFile("credentials/c1/record.yml")
	require.NoError(t, err)
	assert.Equal(t, "id: c1\n", string(content))
}

func TestRoundTripIntoDirectory(t *testing.T) {
	data := packSample(t)

	dst, err := workspace.CreateUnique(t.TempDir(), logger.Logger{})
	require.NoError(t, err)
	defer dst.Destroy()

	require.NoError(t, NewSealed(fastParams).Unpack(context.Background(), data, password, dst))
	content, err := dst.ReadFile("metadata.yml")
	require.NoError(t, err)
	assert.Equal(t, "credential_count: 1\n", string(content))
}

func TestUnpackUsesParamsFromHeader(t *testing.T) {
	data := packSample(t)

	// A codec configured with different costs still reads older archives.
	dst := workspace.NewMemory()
	require.NoError(t, NewSealed(Params{Time: 2, MemoryKiB: 128, Threads: 2}).Unpack(context.Background(), data, password, dst))
}

func TestTarStreamIsDeterministic(t *testing.T) {
	first, err := tarWorkspace(sampleWorkspace(t))
	require.NoError(t, err)
	second, err := tarWorkspace(sampleWorkspace(t))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPackUsesFreshSaltAndNonce(t *testing.T) {
	assert.NotEqual(t, packSample(t), packSample(t))
}

func TestUnpackErrors(t *testing.T) {
	valid := packSample(t)

	mutate := func(f func([]byte) []byte) []byte {
		return f(append([]byte(nil), valid...))
	}

	tests := []struct {
		name     string
		data     []byte
		password []byte
		kind     kerrors.CodecKind
	}{
		{"WrongPassword", valid, []byte("wrong"), kerrors.CodecBadPassword},
		{"EmptyPassword", valid, nil, kerrors.CodecBadPassword},
		{"TinyInput", []byte("LB"), password, kerrors.CodecTruncated},
		{"ForeignFormat", []byte("PK\x03\x04 this is a zip file"), password, kerrors.CodecUnsupportedFormat},
		{"FutureVersion", mutate(func(b []byte) []byte { b[4] = 9; return b }), password, kerrors.CodecUnsupportedFormat},
		{"HeaderOnly", valid[:headerSize], password, kerrors.CodecTruncated},
		{"ImplausibleCost", mutate(func(b []byte) []byte { b[5] = 0xff; return b }), password, kerrors.CodecCorrupt},
		{"TamperedBody", mutate(func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }), password, kerrors.CodecCorrupt},
		{"CutBody", valid[:len(valid)-10], password, kerrors.CodecCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := workspace.NewMemory()
			err := NewSealed(fastParams).Unpack(context.Background(), tt.data, tt.password, dst)
			requireCodecKind(t, err, tt.kind)

			names, listErr := dst.List()
			require.NoError(t, listErr)
			assert.Empty(t, names, "nothing may be extracted on failure")
		})
	}
}

func TestUnpackRejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: "../evil.yml", Mode: 0600, Size: 1}))
	_, err := tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	s := NewSealed(fastParams)
	data, err := s.seal(buf.Bytes(), password)
	require.NoError(t, err)

	err = s.Unpack(context.Background(), data, password, workspace.NewMemory())
	requireCodecKind(t, err, kerrors.CodecCorrupt)
}

func TestUnpackRejectsNonGzipPlaintext(t *testing.T) {
	s := NewSealed(fastParams)
	data, err := s.seal([]byte("plain text, not gzip"), password)
	require.NoError(t, err)

	err = s.Unpack(context.Background(), data, password, workspace.NewMemory())
	requireCodecKind(t, err, kerrors.CodecCorrupt)
}

func TestUnpackIntoDestroyedWorkspace(t *testing.T) {
	data := packSample(t)
	dst := workspace.NewMemory()
	require.NoError(t, dst.Destroy())

	err := NewSealed(fastParams).Unpack(context.Background(), data, password, dst)
	requireCodecKind(t, err, kerrors.CodecIO)
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSealed(fastParams).Pack(ctx, sampleWorkspace(t), password)
	assert.ErrorIs(t, err, context.Canceled)

	dst := workspace.NewMemory()
	err = NewSealed(fastParams).Unpack(ctx, packSample(t), password, dst)
	assert.ErrorIs(t, err, context.Canceled)
	names, _ := dst.List()
	assert.Empty(t, names)
}
