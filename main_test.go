//go:build !js

package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semby/pkg/asm"
)

type cliResult struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

func runCLI(args ...string) cliResult {
	a := newApp()
	cmd := newRootCommand(a)
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), exitCode: a.exitCode, err: err}
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

const greeting = `
; prints 42 and a newline, exits with 3
    push 42
    out
    push 10
    outc
    push 3
    hlt
`

func TestCompileThenExec(t *testing.T) {
	src := writeSource(t, "greet.smb", greeting)
	out := filepath.Join(t.TempDir(), "greet.bin")

	res := runCLI("compile", src, "-o", out)
	require.NoError(t, res.err)

	code, err := os.ReadFile(out)
	require.NoError(t, err)
	want, err := asm.Build(greeting, src, asm.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, want, code)
	assert.Equal(t, fmt.Sprintf("Compilation done. Written %d bytes to %s\n", len(code), out), res.stdout)

	res = runCLI("exec", out)
	require.NoError(t, res.err)
	assert.Equal(t, "42\n", res.stdout)
	assert.Equal(t, 3, res.exitCode)
}

func TestCompileDefaultOutput(t *testing.T) {
	src := writeSource(t, "greet.smb", greeting)

	res := runCLI("compile", src)
	require.NoError(t, res.err)

	_, err := os.Stat(strings.TrimSuffix(src, ".smb") + ".smbc")
	assert.NoError(t, err)
}

func TestRun(t *testing.T) {
	src := writeSource(t, "greet.smb", greeting)

	res := runCLI("run", src)
	require.NoError(t, res.err)
	assert.Equal(t, "42\n", res.stdout)
	assert.Equal(t, 3, res.exitCode)
}

func TestRunFault(t *testing.T) {
	src := writeSource(t, "bad.smb", "push 1\nldc\n")
	traceDir := t.TempDir()

	res := runCLI("--source-map", "--trace-dir", traceDir, "run", src)
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.exitCode)
	assert.True(t, strings.HasPrefix(res.stderr, "error at "+src+"[2]\n"), res.stderr)

	_, err := os.Stat(filepath.Join(traceDir, "CRASH.semby.trace"))
	assert.NoError(t, err)
}

func TestRunTrace(t *testing.T) {
	src := writeSource(t, "trc.smb", "push 9\ntrc\n")
	traceDir := t.TempDir()

	res := runCLI("--trace", "--trace-dir", traceDir, "run", src)
	require.NoError(t, res.err)

	data, err := os.ReadFile(filepath.Join(traceDir, "semby.trace"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "STACK:\n9\n")
}

func TestAssemblyErrors(t *testing.T) {
	src := writeSource(t, "dup.smb", ": a\n: a\njmp a\n")
	res := runCLI("compile", src)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "label a is defined multiple times")

	res = runCLI("--strict-jumps=false", "compile", src)
	require.NoError(t, res.err)

	src = writeSource(t, "junk.smb", "push 1\nfrobnicate\n")
	res = runCLI("--strict-syntax", "compile", src)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "unrecognised instruction frobnicate")
}

func TestConfigFile(t *testing.T) {
	cfg := writeSource(t, "semby.toml", "[assembler]\nstrict_jumps = false\n\n[machine]\nmemory_size = 4\n")
	dup := writeSource(t, "dup.smb", ": a\n: a\npush 0\nhlt\n")

	res := runCLI("--config", cfg, "run", dup)
	require.NoError(t, res.err)
	assert.Equal(t, 0, res.exitCode)

	// Flags set explicitly win over the file.
	res = runCLI("--config", cfg, "--strict-jumps", "run", dup)
	require.Error(t, res.err)

	// memory_size = 4 from the file makes cell 4 out of bounds.
	mem := writeSource(t, "mem.smb", "push 4\nmld\n")
	res = runCLI("--config", cfg, "--trace-dir", t.TempDir(), "run", mem)
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.exitCode)

	res = runCLI("--config", cfg, "--memory", "8", "run", mem)
	require.NoError(t, res.err)
	assert.Equal(t, 0, res.exitCode)
}

func TestInvalidSettings(t *testing.T) {
	src := writeSource(t, "greet.smb", greeting)

	res := runCLI("--memory", "0", "run", src)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "memory_size must be positive")

	res = runCLI("--log-level", "loud", "run", src)
	require.Error(t, res.err)

	res = runCLI("--config", filepath.Join(t.TempDir(), "none.toml"), "run", src)
	require.Error(t, res.err)
}

func TestDisasm(t *testing.T) {
	src := writeSource(t, "greet.smb", greeting)
	out := filepath.Join(t.TempDir(), "greet.smbc")
	require.NoError(t, runCLI("--source-map", "compile", src, "-o", out).err)

	res := runCLI("disasm", out)
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimRight(res.stdout, "\n"), "\n")
	require.Len(t, lines, 12)
	assert.Contains(t, lines[0], "src")
	assert.Contains(t, lines[1], "push  42")
	assert.Contains(t, lines[11], "hlt")

	bad := writeSource(t, "bad.smbc", "\xee")
	res = runCLI("disasm", bad)
	require.Error(t, res.err)
}

func TestRunWithExternalRuntime(t *testing.T) {
	runtime, err := exec.LookPath("false")
	if err != nil {
		t.Skip("no false binary available")
	}
	src := writeSource(t, "greet.smb", greeting)

	res := runCLI("run", "--runtime", runtime, src)
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.exitCode)

	code, err := os.ReadFile(delegatePath)
	require.NoError(t, err)
	want, err := asm.Build(greeting, src, asm.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, want, code)
}

func TestMissingInput(t *testing.T) {
	res := runCLI("exec", filepath.Join(t.TempDir(), "missing.smbc"))
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "reading")

	res = runCLI("compile")
	require.Error(t, res.err)
}
