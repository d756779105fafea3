package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

func TestRepositoryLifecycle(t *testing.T) {
	archives := setupTestEnvironment(t)
	vault := filepath.Join(archives, "vault.lbx")

	output := mustRunCLI(t, "create", vault)
	if !strings.Contains(output, "Created") {
		t.Errorf("Expected creation message, got: %s", output)
	}
	if _, err := os.Stat(vault); err != nil {
		t.Fatalf("Archive was not written: %v", err)
	}

	output = mustRunCLI(t, "add", vault, "--id", "github", "--title", "GitHub",
		"-f", "username=octocat", "--secret", "password=hunter22", "--tag", "work")
	if !strings.Contains(output, "Added 'github' (1 credentials)") {
		t.Errorf("Expected add confirmation, got: %s", output)
	}

	output = mustRunCLI(t, "list", vault)
	if !strings.Contains(output, "'github'") || !strings.Contains(output, "GitHub") {
		t.Errorf("Expected credential in list, got: %s", output)
	}
	if strings.Contains(output, "hunter22") {
		t.Errorf("List must not print sensitive values: %s", output)
	}

	output = mustRunCLI(t, "show", vault, "github")
	if !strings.Contains(output, "[REDACTED]") || strings.Contains(output, "hunter22") {
		t.Errorf("Expected redacted password, got: %s", output)
	}

	output = mustRunCLI(t, "show", vault, "github", "--reveal")
	if !strings.Contains(output, "<hunter22>") {
		t.Errorf("Expected revealed password, got: %s", output)
	}

	output = mustRunCLI(t, "show", vault, "github", "--last", "4")
	if !strings.Contains(output, "<****er22>") {
		t.Errorf("Expected masked password, got: %s", output)
	}

	mustRunCLI(t, "set", vault, "github", "username", "monalisa")
	output = mustRunCLI(t, "show", vault, "github")
	if !strings.Contains(output, "monalisa") {
		t.Errorf("Expected updated username, got: %s", output)
	}

	output = mustRunCLI(t, "verify", vault)
	if !strings.Contains(output, "is intact") {
		t.Errorf("Expected intact archive, got: %s", output)
	}

	output = mustRunCLI(t, "delete", vault, "github")
	if !strings.Contains(output, "0 credentials left") {
		t.Errorf("Expected delete confirmation, got: %s", output)
	}

	output = mustRunCLI(t, "list", vault)
	if !strings.Contains(output, "No credentials found.") {
		t.Errorf("Expected empty list, got: %s", output)
	}
}

func TestCreateRefusesToOverwrite(t *testing.T) {
	archives := setupTestEnvironment(t)
	vault := filepath.Join(archives, "vault.lbx")

	mustRunCLI(t, "create", vault)
	before, err := os.ReadFile(vault)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}

	output, err := runCLI(t, "create", vault)
	if err == nil {
		t.Fatalf("Expected an error when the archive exists, output: %s", output)
	}
	if !strings.Contains(output, "already exists") {
		t.Errorf("Expected exists message, got: %s", output)
	}

	after, _ := os.ReadFile(vault)
	if string(before) != string(after) {
		t.Errorf("Archive changed although create was refused")
	}

	mustRunCLI(t, "create", vault, "--force")
}

func TestWrongPassphrase(t *testing.T) {
	archives := setupTestEnvironment(t)
	vault := filepath.Join(archives, "vault.lbx")
	mustRunCLI(t, "create", vault)

	t.Setenv(passphraseEnv, "not-the-passphrase")
	output, err := runCLI(t, "list", vault)
	if !errors.Is(err, kerrors.ErrAuthenticationFailed) {
		t.Fatalf("Expected authentication failure, got: %v", err)
	}
	if !strings.Contains(output, "Check your passphrase") {
		t.Errorf("Expected passphrase hint, got: %s", output)
	}
}

func TestMissingArchive(t *testing.T) {
	archives := setupTestEnvironment(t)

	output, err := runCLI(t, "list", filepath.Join(archives, "absent.lbx"))
	if err == nil {
		t.Fatalf("Expected an error for a missing archive")
	}
	if !strings.Contains(output, "lockbox create") {
		t.Errorf("Expected create hint, got: %s", output)
	}
}

func TestWeakPassphraseOnCreate(t *testing.T) {
	archives := setupTestEnvironment(t)
	vault := filepath.Join(archives, "vault.lbx")

	t.Setenv(passphraseEnv, "short")
	output, err := runCLI(t, "create", vault)
	if err == nil {
		t.Fatalf("Expected weak passphrase error, output: %s", output)
	}
	if !strings.Contains(output, "Choose a longer passphrase") {
		t.Errorf("Expected passphrase hint, got: %s", output)
	}
	if _, err := os.Stat(vault); !os.IsNotExist(err) {
		t.Errorf("No archive should be written for a weak passphrase")
	}
}

func TestPasswd(t *testing.T) {
	archives := setupTestEnvironment(t)
	vault := filepath.Join(archives, "vault.lbx")
	mustRunCLI(t, "create", vault)

	t.Setenv(newPassphraseEnv, "An0ther!Pass")
	output := mustRunCLI(t, "passwd", vault)
	if !strings.Contains(output, "Passphrase changed") {
		t.Errorf("Expected passwd confirmation, got: %s", output)
	}

	if _, err := runCLI(t, "list", vault); err == nil {
		t.Errorf("The old passphrase should no longer open the archive")
	}

	t.Setenv(passphraseEnv, "An0ther!Pass")
	mustRunCLI(t, "list", vault)
}

func TestCorruptArchiveSuggestsBackup(t *testing.T) {
	archives := setupTestEnvironment(t)
	vault := filepath.Join(archives, "vault.lbx")
	mustRunCLI(t, "create", vault)
	mustRunCLI(t, "add", vault, "--id", "c1", "--title", "First")

	output := mustRunCLI(t, "backups", vault)
	if !strings.Contains(output, "vault_backup_") {
		t.Fatalf("Expected a backup to be listed, got: %s", output)
	}

	if err := os.WriteFile(vault, []byte("this is not an archive"), 0600); err != nil {
		t.Fatalf("Failed to corrupt archive: %v", err)
	}

	output, err := runCLI(t, "list", vault)
	if err == nil {
		t.Fatalf("Expected corrupt archive error, output: %s", output)
	}
	if !strings.Contains(output, "Restore the repository from a backup") || !strings.Contains(output, "vault_backup_") {
		t.Errorf("Expected backup hint with path, got: %s", output)
	}
}

func TestLogCommand(t *testing.T) {
	archives := setupTestEnvironment(t)
	vault := filepath.Join(archives, "vault.lbx")

	output := mustRunCLI(t, "log")
	if !strings.Contains(output, "No audit log found") {
		t.Errorf("Expected missing log message, got: %s", output)
	}

	mustRunCLI(t, "create", vault)
	mustRunCLI(t, "list", vault)

	output = mustRunCLI(t, "log", "--operation", "create")
	if !strings.Contains(output, "create") || !strings.Contains(output, vault) {
		t.Errorf("Expected create entry, got: %s", output)
	}

	output = mustRunCLI(t, "log", "--since", "01/01/2024")
	if !strings.Contains(output, "YYYY-MM-DD") {
		t.Errorf("Expected date format hint, got: %s", output)
	}
}

func TestCleanWithNothingToDo(t *testing.T) {
	setupTestEnvironment(t)

	output := mustRunCLI(t, "clean", "--dry-run")
	if !strings.Contains(output, "No stale workspaces found") {
		t.Errorf("Expected nothing to clean, got: %s", output)
	}
}

func TestDoctorExitCodes(t *testing.T) {
	archives := setupTestEnvironment(t)

	run := func(args ...string) (string, int) {
		ResetGlobalState()
		code := 0
		SetDoctorExitFunc(func(c int) { code = c })
		RootCmd.SetArgs(args)
		output, err := captureOutput(func() error { return RootCmd.Execute() })
		if err != nil {
			t.Fatalf("doctor failed: %v", err)
		}
		return output, code
	}

	output, code := run("doctor")
	if code != 0 {
		t.Errorf("Expected clean setup to pass, code %d, output: %s", code, output)
	}

	output, code = run("doctor", "--archive", filepath.Join(archives, "absent.lbx"))
	if code != 2 {
		t.Errorf("Expected exit code 2 for a missing archive, got %d, output: %s", code, output)
	}
	if !strings.Contains(output, "lockbox create") {
		t.Errorf("Expected create suggestion, got: %s", output)
	}
	if !strings.Contains(output, "Setup") || !strings.Contains(output, "Archive") {
		t.Errorf("Expected setup and archive sections, got: %s", output)
	}
	if !strings.Contains(output, "7 checks") {
		t.Errorf("Expected check totals, got: %s", output)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	setupTestEnvironment(t)
	configPath := filepath.Join(t.TempDir(), "lockbox", "config.toml")
	t.Setenv("LOCKBOX_CONFIG", configPath)

	output := mustRunCLI(t, "config", "init", "--backend", "legacy")
	if !strings.Contains(output, "Wrote") {
		t.Errorf("Expected config written, got: %s", output)
	}

	output = mustRunCLI(t, "config", "init")
	if !strings.Contains(output, "already exists") {
		t.Errorf("Expected existing config warning, got: %s", output)
	}

	output = mustRunCLI(t, "config", "show")
	if !strings.Contains(output, "legacy") {
		t.Errorf("Expected legacy backend, got: %s", output)
	}
}
