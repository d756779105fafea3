package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/registry"
)

const testPassphrase = "Str0ng!Pass"

// testConfig keeps key derivation cheap so CLI tests stay fast.
const testConfig = `backend = "hybrid"
temp_root = %q
audit = true

[backup]
enabled = true
count = 2

[argon2]
time = 1
memory_kib = 64
threads = 1
`

// setupTestEnvironment points lockbox at temporary config, data and temp
// directories and returns the directory to create archives in.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	tempRoot := filepath.Join(base, "tmp")
	if err := os.MkdirAll(tempRoot, 0700); err != nil {
		t.Fatalf("Failed to create temp root: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, []byte(fmt.Sprintf(testConfig, tempRoot)), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("LOCKBOX_CONFIG", configPath)
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv(passphraseEnv, testPassphrase)
	t.Setenv("NO_COLOR", "1")

	t.Cleanup(func() {
		_ = registry.Process().CloseCurrent()
		ResetGlobalState()
	})

	archives := filepath.Join(base, "archives")
	if err := os.MkdirAll(archives, 0700); err != nil {
		t.Fatalf("Failed to create archive directory: %v", err)
	}
	return archives
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// runCLI runs the root command with args and returns its combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	ResetGlobalState()
	Logger = logger.Logger{}
	RootCmd.SetArgs(args)
	return captureOutput(func() error {
		return RootCmd.Execute()
	})
}

// mustRunCLI runs the root command and fails the test on error.
func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()

	output, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("lockbox %v failed: %v\nOutput: %s", args, err, output)
	}
	return output
}
