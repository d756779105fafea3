package store

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/workspace"
)

const (
	MetadataFile = "metadata.yml"
	LayoutFile   = "layout.yml"

	nestedPattern = "credentials/*/record.yml"
	flatPattern   = "credentials_*_record.yml"
	flatPrefix    = "credentials_"
	flatSuffix    = "_record.yml"
)

// Layout names the record file layout inside a workspace.
type Layout string

const (
	LayoutNested Layout = "nested"
	LayoutFlat   Layout = "flat"
)

// RecordPath returns where the record for id lives in layout l.
func (l Layout) RecordPath(id string) string {
	if l == LayoutFlat {
		return flatPrefix + id + flatSuffix
	}
	return "credentials/" + id + "/record.yml"
}

type layoutMarker struct {
	Layout Layout `yaml:"layout"`
}

// Dump writes meta and records into ws and removes record files of ids that
// are no longer present. The returned Layout is the one actually used.
// meta.CredentialCount is overwritten with the number of records written.
func Dump(ws workspace.Workspace, meta Metadata, records []Credential) (Layout, error) {
	encoded := make(map[string][]byte, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		rec = rec.Clone()
		rec.Normalize()
		if err := rec.Validate(); err != nil {
			return "", err
		}
		if _, dup := encoded[rec.ID]; dup {
			return "", fmt.Errorf("%w: %s", kerrors.ErrDuplicateID, rec.ID)
		}
		data, err := yaml.Marshal(&rec)
		if err != nil {
			return "", fmt.Errorf("%w: encoding record %s: %v", kerrors.ErrIO, rec.ID, err)
		}
		encoded[rec.ID] = data
		ids = append(ids, rec.ID)
	}

	layout := LayoutNested
	written, err := writeRecords(ws, layout, ids, encoded)
	if err != nil && isStructuralPathError(err) {
		layout = LayoutFlat
		written, err = writeRecords(ws, layout, ids, encoded)
	}
	if err != nil {
		return "", fmt.Errorf("%w: writing %s records: %v", kerrors.ErrIO, layout, err)
	}

	if err := writeYAML(ws, LayoutFile, layoutMarker{Layout: layout}); err != nil {
		return "", err
	}

	if err := removeStale(ws, written); err != nil {
		return "", fmt.Errorf("%w: removing stale records: %v", kerrors.ErrIO, err)
	}

	meta.CredentialCount = len(written)
	if err := writeYAML(ws, MetadataFile, meta); err != nil {
		return "", err
	}
	return layout, nil
}

func writeRecords(ws workspace.Workspace, layout Layout, ids []string, encoded map[string][]byte) (map[string]bool, error) {
	written := make(map[string]bool, len(ids))
	for _, id := range ids {
		name := layout.RecordPath(id)
		if err := ws.WriteFile(name, encoded[id]); err != nil {
			return nil, err
		}
		written[name] = true
	}
	return written, nil
}

// isStructuralPathError reports errors caused by the shape of a path
// rather than by permissions or capacity.
func isStructuralPathError(err error) bool {
	for _, errno := range []syscall.Errno{syscall.ENOTDIR, syscall.EISDIR, syscall.ENAMETOOLONG, syscall.EINVAL, syscall.ELOOP} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return errors.Is(err, fs.ErrInvalid)
}

func removeStale(ws workspace.Workspace, keep map[string]bool) error {
	names, err := ws.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := recordID(name); !ok || keep[name] {
			continue
		}
		if err := ws.Remove(name); err != nil {
			return err
		}
	}
	return nil
}

func writeYAML(ws workspace.Workspace, name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", kerrors.ErrIO, name, err)
	}
	if err := ws.WriteFile(name, data); err != nil {
		return fmt.Errorf("%w: writing %s: %v", kerrors.ErrIO, name, err)
	}
	return nil
}

// recordID extracts the credential id from a record file name in either layout.
func recordID(name string) (string, bool) {
	if ok, _ := doublestar.Match(nestedPattern, name); ok {
		return strings.Split(name, "/")[1], true
	}
	if ok, _ := doublestar.Match(flatPattern, name); ok && !strings.Contains(name, "/") {
		id := strings.TrimSuffix(strings.TrimPrefix(name, flatPrefix), flatSuffix)
		if id != "" {
			return id, true
		}
	}
	return "", false
}

func recordLayout(name string) Layout {
	if strings.Contains(name, "/") {
		return LayoutNested
	}
	return LayoutFlat
}

// Load reads the metadata and every record from ws. Records are returned
// sorted by id. It does not compare the metadata count with the records,
// see CheckCount.
func Load(ws workspace.Workspace) (Metadata, []Credential, Layout, error) {
	var meta Metadata
	raw, err := ws.ReadFile(MetadataFile)
	if errors.Is(err, fs.ErrNotExist) {
		return meta, nil, "", fmt.Errorf("%w: %s is missing", kerrors.ErrStructure, MetadataFile)
	}
	if err != nil {
		return meta, nil, "", fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, MetadataFile, err)
	}
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return meta, nil, "", fmt.Errorf("%w: parsing %s: %v", kerrors.ErrStructure, MetadataFile, err)
	}

	marked, err := readMarker(ws)
	if err != nil {
		return meta, nil, "", err
	}

	names, err := ws.List()
	if err != nil {
		return meta, nil, "", fmt.Errorf("%w: listing workspace: %v", kerrors.ErrIO, err)
	}

	var records []Credential
	seen := make(map[string]string)
	detected := Layout("")
	for _, name := range names {
		id, ok := recordID(name)
		if !ok {
			continue
		}

		layout := recordLayout(name)
		if marked != "" && layout != marked {
			return meta, nil, "", fmt.Errorf("%w: %s does not belong to the %s layout", kerrors.ErrStructure, name, marked)
		}
		if detected == "" {
			detected = layout
		}
		if other, dup := seen[id]; dup {
			return meta, nil, "", fmt.Errorf("%w: credential %s stored twice (%s, %s)", kerrors.ErrStructure, id, other, name)
		}
		seen[id] = name

		rec, err := loadRecord(ws, name, id)
		if err != nil {
			return meta, nil, "", err
		}
		records = append(records, rec)
	}

	layout := marked
	if layout == "" {
		layout = detected
	}
	if layout == "" {
		layout = LayoutNested
	}

	SortByID(records)
	return meta, records, layout, nil
}

func readMarker(ws workspace.Workspace) (Layout, error) {
	raw, err := ws.ReadFile(LayoutFile)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, LayoutFile, err)
	}

	var marker layoutMarker
	if err := yaml.Unmarshal(raw, &marker); err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", kerrors.ErrStructure, LayoutFile, err)
	}
	switch marker.Layout {
	case LayoutNested, LayoutFlat:
		return marker.Layout, nil
	}
	return "", fmt.Errorf("%w: unknown record layout %q", kerrors.ErrStructure, marker.Layout)
}

func loadRecord(ws workspace.Workspace, name, id string) (Credential, error) {
	var rec Credential
	raw, err := ws.ReadFile(name)
	if err != nil {
		return rec, fmt.Errorf("%w: reading %s: %v", kerrors.ErrIO, name, err)
	}
	if err := yaml.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("%w: parsing %s: %v", kerrors.ErrStructure, name, err)
	}
	if rec.ID != id {
		return rec, fmt.Errorf("%w: %s holds credential %q", kerrors.ErrStructure, name, rec.ID)
	}

	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return rec, fmt.Errorf("%w: %s: %w", kerrors.ErrStructure, name, err)
	}
	return rec, nil
}

// CheckCount verifies that meta declares exactly the records that were loaded.
func CheckCount(meta Metadata, records []Credential) error {
	if meta.CredentialCount != len(records) {
		return fmt.Errorf("%w: metadata declares %d credential(s) but %d record file(s) were found",
			kerrors.ErrStructure, meta.CredentialCount, len(records))
	}
	return nil
}
