package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func execute(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = Execute(context.Background(), NewRootCommand(&out, &errOut), args)
	return out.String(), err
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T: %v", err, err)
	assert.Equal(t, code, exitErr.Code)
}

func modulesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plots", "alpha.hcl"), `module {
  name = "Alpha Plot"
}
function "plot" {
  params = [d]
  result = d
}
`)
	writeFile(t, filepath.Join(dir, "plots", "beta.hcl"), `module {
  name = "beta plot"
}
function "plot" {
  params = [d]
  result = d
}
`)
	writeFile(t, filepath.Join(dir, "plots", "gamma.hcl"), `module {
  name = "Gamma"
  help = "Radial layout"
}
function "plot" {
  params = [d]
  result = d
}
`)
	writeFile(t, filepath.Join(dir, "upper.hcl"), `#r "strings"
function "transform" {
  params = [tree]
  result = upper(tree)
}
`)
	return dir
}

func TestList_FiltersByKindAndQuery(t *testing.T) {
	// --- Arrange ---
	dir := modulesDir(t)

	// --- Act ---
	out, err := execute(t, "list", "-m", dir, "--kind", "plotting", "--query", "plot")

	// --- Assert ---
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "KIND")
	assert.Contains(t, lines[1], "Alpha Plot")
	assert.Contains(t, lines[2], "beta plot")
}

func TestList_JSON(t *testing.T) {
	dir := modulesDir(t)

	out, err := execute(t, "list", "-m", dir, "-k", "transformer", "--json")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "core identity module plus upper")
	assert.Contains(t, lines[0], `"id":"identity"`)
	assert.Contains(t, lines[1], `"id":"upper"`)
}

func TestList_UnknownKind(t *testing.T) {
	_, err := execute(t, "list", "-m", t.TempDir(), "--kind", "sculpture")

	requireExitCode(t, err, 2)
}

func TestInvoke(t *testing.T) {
	dir := modulesDir(t)

	out, err := execute(t, "invoke", "upper", "-m", dir, "--arg", `"leaf"`)

	require.NoError(t, err)
	assert.Equal(t, "\"LEAF\"\n", out)
}

func TestInvoke_Errors(t *testing.T) {
	dir := modulesDir(t)

	_, err := execute(t, "invoke", "uper", "-m", dir, "--arg", `"x"`)
	requireExitCode(t, err, 1)
	assert.Contains(t, err.Error(), "did you mean upper")

	_, err = execute(t, "invoke", "upper", "-m", dir, "--arg", `{not json`)
	requireExitCode(t, err, 2)
}

func TestCheck_ReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.hcl")
	writeFile(t, bad, "function \"plot\" {\n  params = [d]\n  result = shout(d)\n}\n")

	out, err := execute(t, "check", "-m", dir, bad)

	requireExitCode(t, err, 1)
	assert.Contains(t, out, "FAIL "+bad)
	assert.Contains(t, out, "PLG3002")
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	// --- Arrange ---
	dir := modulesDir(t)
	cfgPath := filepath.Join(t.TempDir(), "treeplug.yaml")
	writeFile(t, cfgPath, "modules_path: "+dir+"\nmodule_pattern: \"*.hcl\"\n")

	// --- Act ---
	fromFile, err := execute(t, "list", "--config", cfgPath, "--json")
	require.NoError(t, err)
	overridden, err := execute(t, "list", "--config", cfgPath, "--pattern", "**/*.hcl", "--json")
	require.NoError(t, err)

	// --- Assert ---
	// Two core modules plus upper.hcl; the plots directory is out of pattern.
	assert.Len(t, strings.Split(strings.TrimSpace(fromFile), "\n"), 3)
	assert.Len(t, strings.Split(strings.TrimSpace(overridden), "\n"), 6)
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := execute(t, "libraries", "--log-level", "loud")

	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "log-level")
}

func TestLibraries(t *testing.T) {
	libs := t.TempDir()
	writeFile(t, filepath.Join(libs, "geometry.hcl"), "function \"double\" {\n  params = [x]\n  result = x * 2\n}\n")

	out, err := execute(t, "libraries", "-m", t.TempDir(), "-L", libs)

	require.NoError(t, err)
	assert.Contains(t, strings.Split(out, "\n"), "geometry")
	assert.Contains(t, strings.Split(out, "\n"), "strings")
}

func TestPipe(t *testing.T) {
	// --- Arrange ---
	dir := modulesDir(t)
	writeFile(t, filepath.Join(dir, "shout.hcl"), `#r "strings"
function "further_transform" {
  params = [tree]
  result = upper(tree)
}
`)

	// --- Act ---
	out, err := execute(t, "pipe", "passthrough", "shout", "passthrough", "-m", dir, "--arg", `"leaf"`)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "\"LEAF\"\n", out)
}

func TestPipe_RejectsInvalidSelection(t *testing.T) {
	dir := modulesDir(t)
	writeFile(t, filepath.Join(dir, "shout.hcl"), `#r "strings"
function "further_transform" {
  params = [tree]
  result = upper(tree)
}
`)

	testCases := []struct {
		name    string
		ids     []string
		errText string
	}{
		{name: "non-repeatable twice", ids: []string{"shout", "shout"}, errText: "not repeatable"},
		{name: "mixed kinds", ids: []string{"shout", "alpha"}, errText: "does not match"},
		{name: "unchainable kind", ids: []string{"upper"}, errText: "further transformation or plotting"},
		{name: "unknown module", ids: []string{"shot"}, errText: "did you mean shout"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"pipe"}, tc.ids...)
			_, err := execute(t, append(args, "-m", dir, "--arg", `"x"`)...)

			requireExitCode(t, err, 1)
			assert.Contains(t, err.Error(), tc.errText)
		})
	}
}
