package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestTrail(t *testing.T) *Trail {
	t.Helper()
	return NewTrail(filepath.Join(t.TempDir(), "nested", "audit.jsonl"))
}

func TestLog_CreatesFile(t *testing.T) {
	trail := newTestTrail(t)

	trail.Log(NewEntry(OpCreate, "/tmp/vault.lbx"))

	info, err := os.Stat(trail.Path)
	if err != nil {
		t.Fatalf("Audit log file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	trail := newTestTrail(t)

	trail.Log(Entry{User: "alice", Operation: OpOpen})
	trail.Log(Entry{User: "alice", Operation: OpSave, Count: 2})
	trail.Log(Entry{User: "alice", Operation: OpClose})

	entries, err := trail.ReadEntries()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[1].Operation != OpSave || entries[1].Count != 2 {
		t.Errorf("Unexpected second entry: %+v", entries[1])
	}
}

func TestLog_ConcurrentWritesStayLineDelimited(t *testing.T) {
	trail := newTestTrail(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			trail.Log(Entry{Operation: OpSave, Count: n})
		}(i)
	}
	wg.Wait()

	entries, err := trail.ReadEntries()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 20 {
		t.Errorf("Expected 20 entries, got %d", len(entries))
	}
}

func TestLog_TimestampFormat(t *testing.T) {
	trail := newTestTrail(t)

	// Timestamp should be auto-set.
	trail.Log(Entry{User: "alice", Operation: OpVerify})

	data, err := os.ReadFile(trail.Path)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	var parsed Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &parsed); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}

	if !strings.HasSuffix(parsed.Timestamp, "Z") {
		t.Errorf("Timestamp should end with Z, got %s", parsed.Timestamp)
	}
	if !strings.Contains(parsed.Timestamp, ".") {
		t.Errorf("Timestamp should contain microseconds, got %s", parsed.Timestamp)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	trail := newTestTrail(t)

	trail.Log(Entry{User: "alice", Operation: OpClose, Archive: "/tmp/x.archive"})

	data, err := os.ReadFile(trail.Path)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	line := strings.TrimSpace(string(data))

	for _, key := range []string{`"count"`, `"layout"`, `"error"`} {
		if strings.Contains(line, key) {
			t.Errorf("Empty %s field should be omitted: %s", key, line)
		}
	}
}

func TestLog_DisabledTrail(t *testing.T) {
	var trail *Trail
	// Should silently do nothing.
	trail.Log(Entry{Operation: OpOpen})

	entries, err := NewTrail("").ReadEntries()
	if err != nil || entries != nil {
		t.Errorf("Expected no entries from a disabled trail, got %v, %v", entries, err)
	}
}

func TestNewEntry_FillsUser(t *testing.T) {
	entry := NewEntry(OpOpen, "/tmp/vault.lbx")
	if entry.Operation != OpOpen || entry.Archive != "/tmp/vault.lbx" {
		t.Errorf("Unexpected entry: %+v", entry)
	}
}

func TestParseEntries_ValidData(t *testing.T) {
	data := []byte(`{"ts":"2024-01-15T10:30:00.123456Z","user":"alice","op":"open","archive":"a.lbx"}
{"ts":"2024-01-15T10:35:00.456789Z","user":"bob","op":"save","archive":"a.lbx","count":3}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].User != "alice" {
		t.Errorf("Expected first user alice, got %s", entries[0].User)
	}
	if entries[1].Count != 3 {
		t.Errorf("Expected count 3, got %d", entries[1].Count)
	}
}

func TestParseEntries_SkipsMalformedLines(t *testing.T) {
	data := []byte(`{"ts":"2024-01-15T10:30:00.123456Z","user":"alice","op":"open"}
this is not valid json
{"ts":"2024-01-15T10:35:00.456789Z","user":"bob","op":"close"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 valid entries (malformed should be skipped), got %d", len(entries))
	}
}

func TestParseEntries_EmptyData(t *testing.T) {
	entries, err := ParseEntries([]byte{})
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if entries != nil {
		t.Errorf("Expected nil entries for empty data, got %v", entries)
	}
}
