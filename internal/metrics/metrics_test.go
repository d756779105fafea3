package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe("open", ResultSuccess, 20*time.Millisecond)
	r.Observe("open", ResultSuccess, 30*time.Millisecond)
	r.Observe("open", ResultError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Operations.WithLabelValues("open", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Operations.WithLabelValues("open", ResultError)))
}

func TestGaugeAndCounter(t *testing.T) {
	r := NewRecorder()
	r.SetCredentials(4)
	r.CopyBackFailed()
	r.CopyBackFailed()

	assert.Equal(t, 4.0, testutil.ToFloat64(r.Credentials))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CopyBackFailures))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Observe("save", ResultSuccess, time.Second)
	r.SetCredentials(1)
	r.CopyBackFailed()
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe("save", ResultSuccess, 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "lockbox.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `lockbox_operations_total{op="save",result="success"} 1`), text)
	assert.Contains(t, text, "lockbox_operation_duration_seconds_bucket")
}
