package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hexpi/internal/logger"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(func() {
		logger.Default.SetOutput(os.Stdout)
		logger.Default.SetLevel(logger.LevelInfo)
	})
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_PrintsHexDigits(t *testing.T) {
	code, stdout, stderr := runCLI(t, "", "-count", "16", "-workers", "3", "-trigger", "none", "-log-level", "error")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "243F6A8885A308D3\n", stdout)
}

func TestRun_DecimalFormat(t *testing.T) {
	code, stdout, stderr := runCLI(t, "", "-count", "4", "-format", "decimal", "-trigger", "none", "-log-level", "error")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "2 4 3 15\n", stdout)
}

func TestRun_ReportOnInfo(t *testing.T) {
	code, _, stderr := runCLI(t, "", "-start", "8", "-count", "8", "-trigger", "none")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "HEX DIGITS OF PI: [8, 16)")
}

func TestRun_WritesOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.txt")

	code, stdout, stderr := runCLI(t, "", "-count", "8", "-out", path, "-trigger", "none", "-log-level", "error")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "wrote 8 digits to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "243F6A88\n", string(data))
}

func TestRun_ConfigFileWithFlagOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hexpi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
run:
  start: 0
  count: 4
  workers: 2
pause:
  trigger: none
log:
  level: error
`), 0o644))

	code, stdout, stderr := runCLI(t, "", "-config", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "243F\n", stdout)

	code, stdout, stderr = runCLI(t, "", "-config", path, "-count", "8")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "243F6A88\n", stdout)
}

func TestRun_StdinTriggerAtEOF(t *testing.T) {
	// Pausing is disabled once stdin is exhausted, so the run still completes.
	code, stdout, stderr := runCLI(t, "\n", "-count", "8", "-interval", "1ms", "-log-level", "error")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "243F6A88\n", stdout)
}

func TestRun_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative start", []string{"-start", "-1"}},
		{"negative count", []string{"-count", "-5"}},
		{"zero workers", []string{"-workers", "0"}},
		{"unknown trigger", []string{"-trigger", "bell"}},
		{"file trigger without path", []string{"-trigger", "file"}},
		{"unknown format", []string{"-format", "octal"}},
		{"unknown log level", []string{"-log-level", "loud"}},
		{"unknown flag", []string{"-bogus"}},
		{"positional argument", []string{"extra"}},
		{"missing config", []string{"-config", "/nonexistent/hexpi.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, "", tt.args...)
			assert.Equal(t, ExitInvalidArgs, code)
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "-version")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "hexpi version dev\n", stdout)
}

func TestRun_Help(t *testing.T) {
	code, _, stderr := runCLI(t, "", "-h")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "Usage:")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-count", "64", "-trigger", "none", "-log-level", "error"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, ExitGeneralError, code)
	assert.Contains(t, stderr.String(), "interrupted")
	assert.Empty(t, stdout.String())
}

func TestRun_DefaultLoggerFollowsFlags(t *testing.T) {
	code, stdout, stderr := runCLI(t, "", "-count", "8", "-workers", "2", "-trigger", "none", "-log-level", "debug")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "243F6A88\n", stdout)
	assert.Contains(t, stderr, "WorkerPool started with 2 workers")
}

func TestRun_WarningsStayOffStdout(t *testing.T) {
	// Each series evaluation this far in outlasts the pause interval, so the
	// exhausted stdin trigger is hit and logs a warning.
	code, stdout, stderr := runCLI(t, "", "-start", "100000", "-count", "16", "-interval", "1ms", "-log-level", "warn")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{16}\n$`), stdout)
	assert.Contains(t, stderr, "[WARN]")
}

func TestRun_ConfigFileZeroCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hexpi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run:\n  count: 0\npause:\n  trigger: none\nlog:\n  level: error\n"), 0o644))

	code, stdout, stderr := runCLI(t, "", "-config", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "\n", stdout)
}
