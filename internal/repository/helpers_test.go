package repository

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PolarWolf314/lockbox/internal/audit"
	"github.com/PolarWolf314/lockbox/internal/codec"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/metrics"
	"github.com/PolarWolf314/lockbox/internal/staging"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

const strongPassword = "Str0ng!Pass"

// testCodec wraps the real codec with failure and delay injection.
type testCodec struct {
	codec.Codec

	mu       sync.Mutex
	unpacks  int
	failPack error
	delay    time.Duration
}

func (c *testCodec) Pack(ctx context.Context, src workspace.Workspace, password []byte) ([]byte, error) {
	c.mu.Lock()
	fail := c.failPack
	c.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return c.Codec.Pack(ctx, src, password)
}

func (c *testCodec) Unpack(ctx context.Context, data []byte, password []byte, dst workspace.Workspace) error {
	c.mu.Lock()
	c.unpacks++
	delay := c.delay
	c.mu.Unlock()
	time.Sleep(delay)
	return c.Codec.Unpack(ctx, data, password, dst)
}

func (c *testCodec) unpackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unpacks
}

type fixture struct {
	dir      string
	tempRoot string
	codec    *testCodec
	trail    *audit.Trail
	metrics  *metrics.Recorder
	mgr      *Manager
}

func newFixture(t *testing.T, backend Backend, mutate ...func(*Options)) *fixture {
	t.Helper()

	base := t.TempDir()
	f := &fixture{
		dir:      filepath.Join(base, "archives"),
		tempRoot: filepath.Join(base, "tmp"),
		codec:    &testCodec{Codec: codec.NewSealed(codec.Params{Time: 1, MemoryKiB: 64, Threads: 1})},
		trail:    audit.NewTrail(filepath.Join(base, "audit.jsonl")),
		metrics:  metrics.NewRecorder(),
	}
	require.NoError(t, os.MkdirAll(f.dir, 0700))

	opts := Options{
		Backend:          backend,
		TempRoot:         f.tempRoot,
		OperationTimeout: 10 * time.Second,
		LockTimeout:      time.Second,
		Codec:            f.codec,
		Audit:            f.trail,
		Metrics:          f.metrics,
		Log:              logger.Logger{},
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	mgr, err := NewManager(opts)
	require.NoError(t, err)
	f.mgr = mgr

	t.Cleanup(func() {
		_ = mgr.Slot().CloseCurrent()
	})
	return f
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

// workspaces counts extraction directories left under the temp root.
func (f *fixture) workspaces(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.tempRoot)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)

	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), workspace.Prefix) {
			n++
		}
	}
	return n
}

func (f *fixture) slotEmpty() bool {
	_, held := f.mgr.Slot().Current()
	return !held
}

// memHandle is an in-memory remote location for staged archives.
type memHandle struct {
	mu        sync.Mutex
	data      []byte
	exists    bool
	failWrite bool
	writes    int
}

func (h *memHandle) ReadAll(context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.exists {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), h.data...), nil
}

func (h *memHandle) WriteAll(_ context.Context, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failWrite {
		return fs.ErrPermission
	}
	h.data = append([]byte(nil), data...)
	h.exists = true
	h.writes++
	return nil
}

func (h *memHandle) String() string { return "mem" }

func (h *memHandle) setFailWrite(fail bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failWrite = fail
}

func (h *memHandle) snapshot() ([]byte, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.data...), h.writes
}

func withRemote(h *memHandle) func(*Options) {
	return func(o *Options) {
		r := staging.NewResolver(logger.Logger{})
		r.Register("mem", func(string) (staging.Handle, error) { return h, nil })
		o.Resolver = r
	}
}
