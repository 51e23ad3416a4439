package diag

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostics_Filtering(t *testing.T) {
	// --- Arrange ---
	ds := Diagnostics{
		Warnf(ClassCompilation, CodeUnusedParam, nil, "parameter %q is never used", "x"),
		Errorf(ClassReference, CodeReferenceMissing, nil, "library %q not found", "geo"),
		Errorf(ClassSyntax, CodeSyntax, nil, "unexpected token"),
	}

	// --- Act & Assert ---
	require.True(t, ds.HasErrors())
	assert.Len(t, ds.Errors(), 2)
	assert.Len(t, ds.Warnings(), 1)
	assert.Len(t, ds.OfClass(ClassReference), 1)
	assert.Equal(t, "PLG4001: parameter \"x\" is never used\nPLG2001: library \"geo\" not found\nPLG1001: unexpected token", ds.Error())
}

func TestDiagnostics_Escalate(t *testing.T) {
	ds := Diagnostics{Warnf(ClassCompilation, CodeShadowedFunc, nil, "shadowed")}
	require.False(t, ds.HasErrors())

	escalated := ds.Escalate()

	assert.True(t, escalated.HasErrors())
	assert.True(t, escalated[0].WarningAsError)
	assert.Equal(t, SeverityWarning, escalated[0].Severity)
	assert.False(t, ds[0].WarningAsError, "the original slice is not modified")
}

func TestFromHCL(t *testing.T) {
	subject := &hcl.Range{Filename: "plot.hcl", Start: hcl.Pos{Line: 3, Column: 5}}
	in := hcl.Diagnostics{
		{Severity: hcl.DiagError, Summary: "Missing closing brace", Detail: "Expected }.", Subject: subject},
		{Severity: hcl.DiagWarning, Summary: "Odd"},
	}

	out := FromHCL(in, ClassSyntax, CodeSyntax)

	require.Len(t, out, 2)
	assert.Equal(t, "PLG1001: plot.hcl:3,5: Missing closing brace; Expected }.", out[0].String())
	assert.Equal(t, SeverityError, out[0].Severity)
	assert.Equal(t, SeverityWarning, out[1].Severity)
	assert.Equal(t, "Odd", out[1].Message)
}

func TestClassAndSeverityNames(t *testing.T) {
	assert.Equal(t, "SyntaxError", ClassSyntax.String())
	assert.Equal(t, "ReferenceNotFound", ClassReference.String())
	assert.Equal(t, "CompilationError", ClassCompilation.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "warning", SeverityWarning.String())
}
