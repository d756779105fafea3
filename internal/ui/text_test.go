package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatterWithColor(t *testing.T) {
	// Setenv registers the restore, then any NO_COLOR value is removed
	// because even an empty one disables color.
	t.Setenv("NO_COLOR", "")
	os.Unsetenv("NO_COLOR")

	original := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = original })

	result := Code.Sprint("lockbox open")
	if strings.Contains(result, "`") {
		t.Errorf("Code.Sprint should not contain backticks when color is enabled, got: %s", result)
	}
	if !strings.Contains(result, "\x1b[") {
		t.Errorf("Code.Sprint should contain ANSI escape codes when color is enabled, got: %s", result)
	}
}

func TestFormatterWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code adds backticks", Code, "lockbox create", "`lockbox create`"},
		{"Path has no decoration", Path, "vault.lbx", "vault.lbx"},
		{"Flag has no decoration", Flag, "--verbose", "--verbose"},
		{"Success has no decoration", Success, "✓", "✓"},
		{"Error has no decoration", Error, "✗", "✗"},
		{"Highlight adds quotes", Highlight, "c1", "'c1'"},
		{"Secret adds brackets", Secret, "p@ss", "<p@ss>"},
		{"Muted adds parentheses", Muted, "2 fields", "(2 fields)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.formatter.Sprint(tt.input)
			if got != tt.want {
				t.Errorf("Sprint(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyValueAlignsKeys(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := KeyValue([][2]string{{"id", "c1"}, {"title", "Example"}})
	want := "  (id:)    c1\n  (title:) Example\n"
	if got != want {
		t.Errorf("KeyValue() = %q, want %q", got, want)
	}
}

func TestEnsureNewline(t *testing.T) {
	if EnsureNewline("a") != "a\n" || EnsureNewline("a\n") != "a\n" || EnsureNewline("") != "\n" {
		t.Error("EnsureNewline did not normalise trailing newline")
	}
}
