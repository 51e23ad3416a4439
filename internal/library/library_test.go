package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/treeplug/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

func writeLibrary(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func libraryNames(libs []*Library) []string {
	names := make([]string, len(libs))
	for i, l := range libs {
		names[i] = l.Name
	}
	return names
}

func TestResolve_BaseFirstDeduplicated(t *testing.T) {
	// --- Arrange ---
	r := NewResolver(NewCatalog())

	// --- Act ---
	libs, diags := r.Resolve(context.Background(), []string{"strings", "core", "regex", "strings"})

	// --- Assert ---
	require.Empty(t, diags)
	assert.Equal(t, []string{"core", "strings", "regex"}, libraryNames(libs))
}

func TestResolve_CustomBaseSet(t *testing.T) {
	r := NewResolver(NewCatalog(), "core", "collections")

	libs, diags := r.Resolve(context.Background(), nil)

	require.Empty(t, diags)
	assert.Equal(t, []string{"core", "collections"}, libraryNames(libs))
}

func TestResolve_MissingLibrarySuggestsClosest(t *testing.T) {
	// --- Arrange ---
	r := NewResolver(NewCatalog())

	// --- Act ---
	libs, diags := r.Resolve(context.Background(), []string{"strngs"})

	// --- Assert ---
	assert.Equal(t, []string{"core"}, libraryNames(libs))
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ClassReference, diags[0].Class)
	assert.Equal(t, diag.CodeReferenceMissing, diags[0].Code)
	assert.True(t, diags[0].IsError())
	assert.Contains(t, diags[0].Message, `did you mean "strings"?`)
}

func TestResolve_FileLibraryOnSearchPath(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeLibrary(t, dir, "libs/shapes/geometry.hcl", `
function "double" {
  params = [x]
  result = x * 2
}

function "quadruple" {
  params = [x]
  result = double(double(x))
}
`)
	r := NewResolver(NewCatalog(filepath.Join(dir, "libs", "**", "*.hcl")))

	// --- Act ---
	libs, diags := r.Resolve(context.Background(), []string{"geometry"})

	// --- Assert ---
	require.Empty(t, diags)
	require.Len(t, libs, 2)
	geometry := libs[1]
	assert.Equal(t, "geometry", geometry.Name)
	assert.Equal(t, []string{"double", "quadruple"}, geometry.FunctionNames())

	got, err := geometry.Functions["quadruple"].Call([]cty.Value{cty.NumberIntVal(3)})
	require.NoError(t, err)
	assert.True(t, got.Equals(cty.NumberIntVal(12)).True())
}

func TestResolve_BrokenLibraryFile(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "broken.hcl", "function \"oops\" {\n")
	r := NewResolver(NewCatalog(filepath.Join(dir, "*.hcl")))

	_, diags := r.Resolve(context.Background(), []string{"broken"})

	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeReferenceInvalid, diags[0].Code)
	assert.Equal(t, diag.ClassReference, diags[0].Class)
}

func TestCatalog_CachesByFingerprint(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	path := writeLibrary(t, dir, "util.hcl", "function \"one\" {\n  params = []\n  result = 1\n}\n")
	c := NewCatalog(filepath.Join(dir, "*.hcl"))
	ctx := context.Background()

	// --- Act ---
	first, err := c.Lookup(ctx, "util")
	require.NoError(t, err)
	second, err := c.Lookup(ctx, "util")
	require.NoError(t, err)

	writeLibrary(t, dir, "util.hcl", "function \"two\" {\n  params = []\n  result = 2\n}\n")
	third, err := c.Lookup(ctx, "util")
	require.NoError(t, err)

	// --- Assert ---
	assert.Same(t, first, second, "unchanged file should be served from cache")
	assert.NotSame(t, first, third, "changed file should be recompiled")
	assert.Equal(t, path, third.Origin)
	assert.Equal(t, []string{"two"}, third.FunctionNames())
}

func TestMerge_EarlierLibraryWins(t *testing.T) {
	// --- Arrange ---
	core, _ := Builtin(CoreName)
	impostor := &Library{
		Name: "impostor",
		Functions: map[string]function.Function{
			"length": stdlib.UpperFunc,
			"shout":  stdlib.UpperFunc,
		},
	}

	// --- Act ---
	merged, diags := Merge([]*Library{core, impostor})

	// --- Assert ---
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeShadowedFunc, diags[0].Code)
	assert.False(t, diags[0].IsError())
	assert.Contains(t, merged, "shout")

	got, err := merged["length"].Call([]cty.Value{cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b"), cty.StringVal("c")})})
	require.NoError(t, err)
	assert.True(t, got.Equals(cty.NumberIntVal(3)).True(), "core length must not be replaced")
}
