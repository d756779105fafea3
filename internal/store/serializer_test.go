package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

var stamp = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func credential(id string) Credential {
	return Credential{
		ID:             id,
		Title:          "Example " + id,
		CredentialType: "login",
		Fields: map[string]Field{
			"username": {Value: "alice", FieldType: FieldUsername},
			"password": {Value: "p@ss", FieldType: FieldPassword, Sensitive: true},
		},
		Tags:      []string{"work", "email"},
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
}

func normalized(records ...Credential) []Credential {
	out := make([]Credential, len(records))
	for i, rec := range records {
		rec = rec.Clone()
		rec.Normalize()
		out[i] = rec
	}
	SortByID(out)
	return out
}

func dirWorkspace(t *testing.T) *workspace.Dir {
	t.Helper()
	ws, err := workspace.CreateUnique(t.TempDir(), logger.Logger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Destroy() })
	return ws
}

func TestDumpLoadRoundTrip(t *testing.T) {
	for name, ws := range map[string]workspace.Workspace{
		"dir":    dirWorkspace(t),
		"memory": workspace.NewMemory(),
	} {
		t.Run(name, func(t *testing.T) {
			records := []Credential{credential("c2"), credential("c1")}

			layout, err := Dump(ws, NewMetadata(stamp), records)
			require.NoError(t, err)
			assert.Equal(t, LayoutNested, layout)

			meta, loaded, loadedLayout, err := Load(ws)
			require.NoError(t, err)
			assert.Equal(t, LayoutNested, loadedLayout)
			assert.Equal(t, 2, meta.CredentialCount)
			assert.Equal(t, FormatTag, meta.Format)
			assert.Equal(t, normalized(records...), loaded)
			assert.NoError(t, CheckCount(meta, loaded))
		})
	}
}

func TestDumpWritesExpectedFiles(t *testing.T) {
	ws := workspace.NewMemory()
	_, err := Dump(ws, NewMetadata(stamp), []Credential{credential("c1")})
	require.NoError(t, err)

	names, err := ws.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"credentials/c1/record.yml", "layout.yml", "metadata.yml"}, names)

	raw, err := ws.ReadFile("credentials/c1/record.yml")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "id: c1")
	assert.Contains(t, string(raw), "sensitive: true")
}

func TestDumpOverwritesCountFromRecords(t *testing.T) {
	ws := workspace.NewMemory()
	meta := NewMetadata(stamp)
	meta.CredentialCount = 99

	_, err := Dump(ws, meta, []Credential{credential("c1")})
	require.NoError(t, err)

	loadedMeta, _, _, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, 1, loadedMeta.CredentialCount)
}

func TestDumpFallsBackToFlatLayout(t *testing.T) {
	ws := dirWorkspace(t)
	// A file where the credentials directory should be makes every nested
	// write fail with ENOTDIR.
	require.NoError(t, os.WriteFile(filepath.Join(ws.Root(), "credentials"), []byte("blocker"), 0600))

	records := []Credential{credential("c1"), credential("c2")}
	layout, err := Dump(ws, NewMetadata(stamp), records)
	require.NoError(t, err)
	assert.Equal(t, LayoutFlat, layout)

	for _, id := range []string{"c1", "c2"} {
		_, err := os.Stat(filepath.Join(ws.Root(), "credentials_"+id+"_record.yml"))
		assert.NoError(t, err)
	}

	meta, loaded, loadedLayout, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, LayoutFlat, loadedLayout)
	assert.Equal(t, normalized(records...), loaded)
	assert.NoError(t, CheckCount(meta, loaded))
}

func TestDumpRemovesStaleRecords(t *testing.T) {
	ws := workspace.NewMemory()
	_, err := Dump(ws, NewMetadata(stamp), []Credential{credential("c1"), credential("c2")})
	require.NoError(t, err)

	// Leftover from an older flat dump.
	require.NoError(t, ws.WriteFile("credentials_c9_record.yml", []byte("id: c9\n")))

	_, err = Dump(ws, NewMetadata(stamp), []Credential{credential("c2")})
	require.NoError(t, err)

	names, err := ws.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"credentials/c2/record.yml", "layout.yml", "metadata.yml"}, names)

	meta, loaded, _, err := Load(ws)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c2", loaded[0].ID)
	assert.Equal(t, 1, meta.CredentialCount)
}

func TestDumpIsIdempotent(t *testing.T) {
	ws := workspace.NewMemory()
	records := []Credential{credential("c1")}

	_, err := Dump(ws, NewMetadata(stamp), records)
	require.NoError(t, err)
	first, err := ws.ReadFile("credentials/c1/record.yml")
	require.NoError(t, err)

	_, err = Dump(ws, NewMetadata(stamp), records)
	require.NoError(t, err)
	second, err := ws.ReadFile("credentials/c1/record.yml")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDumpRejectsInvalidRecords(t *testing.T) {
	bad := credential("c1")
	bad.Title = "  "

	ws := workspace.NewMemory()
	_, err := Dump(ws, NewMetadata(stamp), []Credential{bad})
	assert.ErrorIs(t, err, kerrors.ErrInvalidCredential)

	_, err = Dump(ws, NewMetadata(stamp), []Credential{credential("c1"), credential("c1")})
	assert.ErrorIs(t, err, kerrors.ErrDuplicateID)

	names, err := ws.List()
	require.NoError(t, err)
	assert.Empty(t, names, "nothing is written when validation fails")
}

func TestWideIDsFitBothLayouts(t *testing.T) {
	widest := strings.Repeat("中", MaxIDBytes/3)
	tooWide := strings.Repeat("中", MaxIDLength)

	for name, ws := range map[string]workspace.Workspace{
		"dir":    dirWorkspace(t),
		"memory": workspace.NewMemory(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Dump(ws, NewMetadata(stamp), []Credential{credential(tooWide)})
			require.ErrorIs(t, err, kerrors.ErrInvalidCredential)

			layout, err := Dump(ws, NewMetadata(stamp), []Credential{credential(widest)})
			require.NoError(t, err)
			assert.Equal(t, LayoutNested, layout)

			_, loaded, _, err := Load(ws)
			require.NoError(t, err)
			assert.Equal(t, normalized(credential(widest)), loaded)
		})
	}

	flat := dirWorkspace(t)
	require.NoError(t, flat.WriteFile(LayoutFlat.RecordPath(widest), []byte("id: x\n")))
	require.NoError(t, flat.Remove(LayoutFlat.RecordPath(widest)))
}

func TestLoadWithoutMarkerDetectsBothLayouts(t *testing.T) {
	ws := workspace.NewMemory()
	_, err := Dump(ws, NewMetadata(stamp), []Credential{credential("a"), credential("b")})
	require.NoError(t, err)

	// Simulate an archive written before layout markers existed, with one
	// record in each layout.
	raw, err := ws.ReadFile("credentials/b/record.yml")
	require.NoError(t, err)
	require.NoError(t, ws.Remove("credentials/b/record.yml"))
	require.NoError(t, ws.WriteFile("credentials_b_record.yml", raw))
	require.NoError(t, ws.Remove(LayoutFile))

	_, loaded, layout, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, LayoutNested, layout)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].ID)
	assert.Equal(t, "b", loaded[1].ID)
}

func TestLoadStructureErrors(t *testing.T) {
	setup := func(t *testing.T) *workspace.Memory {
		ws := workspace.NewMemory()
		_, err := Dump(ws, NewMetadata(stamp), []Credential{credential("c1")})
		require.NoError(t, err)
		return ws
	}

	tests := []struct {
		name   string
		mutate func(t *testing.T, ws *workspace.Memory)
	}{
		{"MissingMetadata", func(t *testing.T, ws *workspace.Memory) {
			require.NoError(t, ws.Remove(MetadataFile))
		}},
		{"MalformedMetadata", func(t *testing.T, ws *workspace.Memory) {
			require.NoError(t, ws.WriteFile(MetadataFile, []byte("credential_count: [")))
		}},
		{"UnknownLayout", func(t *testing.T, ws *workspace.Memory) {
			require.NoError(t, ws.WriteFile(LayoutFile, []byte("layout: spiral\n")))
		}},
		{"RecordOutsideMarkedLayout", func(t *testing.T, ws *workspace.Memory) {
			require.NoError(t, ws.WriteFile("credentials_c2_record.yml", []byte("id: c2\ntitle: x\n")))
		}},
		{"IdMismatch", func(t *testing.T, ws *workspace.Memory) {
			require.NoError(t, ws.WriteFile("credentials/c1/record.yml", []byte("id: other\ntitle: x\n")))
		}},
		{"MalformedRecord", func(t *testing.T, ws *workspace.Memory) {
			require.NoError(t, ws.WriteFile("credentials/c1/record.yml", []byte("id: [c1")))
		}},
		{"InvalidRecord", func(t *testing.T, ws *workspace.Memory) {
			require.NoError(t, ws.WriteFile("credentials/c1/record.yml", []byte("id: c1\ntitle: \"\"\n")))
		}},
		{"StoredTwice", func(t *testing.T, ws *workspace.Memory) {
			require.NoError(t, ws.Remove(LayoutFile))
			raw, err := ws.ReadFile("credentials/c1/record.yml")
			require.NoError(t, err)
			require.NoError(t, ws.WriteFile("credentials_c1_record.yml", raw))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := setup(t)
			tt.mutate(t, ws)
			_, _, _, err := Load(ws)
			assert.ErrorIs(t, err, kerrors.ErrStructure)
		})
	}
}

func TestCheckCount(t *testing.T) {
	meta := NewMetadata(stamp)
	meta.CredentialCount = 2

	err := CheckCount(meta, []Credential{credential("c1")})
	assert.ErrorIs(t, err, kerrors.ErrStructure)
	assert.Contains(t, err.Error(), "declares 2")

	meta.CredentialCount = 1
	assert.NoError(t, CheckCount(meta, []Credential{credential("c1")}))
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"credentials/c1/record.yml", "c1", true},
		{"credentials_c1_record.yml", "c1", true},
		{"credentials_with_underscores_record.yml", "with_underscores", true},
		{"credentials/c1/other.yml", "", false},
		{"credentials/a/b/record.yml", "", false},
		{"metadata.yml", "", false},
		{"nested/credentials_c1_record.yml", "", false},
	}
	for _, tt := range tests {
		id, ok := recordID(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.id, id, tt.name)
	}
}

func TestManyRecordsRoundTrip(t *testing.T) {
	ws := workspace.NewMemory()
	var records []Credential
	for i := 0; i < 25; i++ {
		records = append(records, credential(fmt.Sprintf("id-%02d", i)))
	}

	_, err := Dump(ws, NewMetadata(stamp), records)
	require.NoError(t, err)

	meta, loaded, _, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, 25, meta.CredentialCount)
	assert.Equal(t, normalized(records...), loaded)
}
