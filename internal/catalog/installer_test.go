package catalog

import (
	"context"
	"testing"

	"github.com/specialistvlad/treeplug/internal/compiler"
	"github.com/specialistvlad/treeplug/internal/diag"
	"github.com/specialistvlad/treeplug/internal/library"
	"github.com/specialistvlad/treeplug/internal/model"
	"github.com/specialistvlad/treeplug/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const upperPlot = `#r "strings"
module {
  name = "Shout"
}
function "plot" {
  params = [data]
  result = upper(data)
}
`

func newTestInstaller(opts ...Option) *Installer {
	c := compiler.New(library.NewResolver(library.NewCatalog()))
	return NewInstaller(c, registry.New(), opts...)
}

func TestInstall_RegistersCompiledModule(t *testing.T) {
	// --- Arrange ---
	inst := newTestInstaller()
	ctx := context.Background()

	// --- Act ---
	d, err := inst.Install(ctx, upperPlot, model.KindPlotting, model.Meta{ID: "shout"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "shout", d.ID)
	assert.Equal(t, "Shout", d.Name)
	assert.Equal(t, model.KindPlotting, d.Kind)

	got, ok := inst.Registry().Lookup("shout")
	require.True(t, ok)
	out, err := got.Unit.Invoke(ctx, cty.StringVal("hi"))
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("HI"), out)
}

func TestInstall_UnresolvableDirectiveRegistersNothing(t *testing.T) {
	inst := newTestInstaller()

	src := "#r \"nowhere\"\n" + upperPlot
	_, err := inst.Install(context.Background(), src, model.KindPlotting, model.Meta{ID: "shout"})

	require.Error(t, err)
	assert.True(t, compiler.HasClass(err, diag.ClassReference))
	assert.Zero(t, inst.Registry().Len())
}

func TestInstall_DuplicateID(t *testing.T) {
	inst := newTestInstaller()
	ctx := context.Background()
	_, err := inst.Install(ctx, upperPlot, model.KindPlotting, model.Meta{ID: "shout"})
	require.NoError(t, err)

	_, err = inst.Install(ctx, upperPlot, model.KindPlotting, model.Meta{ID: "shout"})

	require.ErrorIs(t, err, registry.ErrDuplicateID)
	assert.Equal(t, 1, inst.Registry().Len())
}

func TestInstall_MissingID(t *testing.T) {
	inst := newTestInstaller()

	_, err := inst.Install(context.Background(), upperPlot, model.KindPlotting, model.Meta{})

	require.ErrorIs(t, err, model.ErrMissingID)
	assert.Zero(t, inst.Registry().Len())
}

func TestInstall_LenientInstallsPlaceholder(t *testing.T) {
	inst := newTestInstaller(WithLenient(true))
	ctx := context.Background()

	d, err := inst.Install(ctx, "function \"plot\" {", model.KindPlotting, model.Meta{ID: "broken"})

	require.NoError(t, err)
	assert.Equal(t, "broken", d.Name)
	out, err := d.Unit.Invoke(ctx, cty.NumberIntVal(7))
	require.NoError(t, err)
	assert.True(t, out.RawEquals(cty.NumberIntVal(7)))
}

func TestInstallAsync(t *testing.T) {
	inst := newTestInstaller()

	res := <-inst.InstallAsync(context.Background(), upperPlot, model.KindPlotting, model.Meta{ID: "shout"})

	require.NoError(t, res.Err)
	assert.Equal(t, "shout", res.Descriptor.ID)
	assert.Equal(t, 1, inst.Registry().Len())
}

func TestUninstall(t *testing.T) {
	inst := newTestInstaller()
	ctx := context.Background()
	_, err := inst.Install(ctx, upperPlot, model.KindPlotting, model.Meta{ID: "shout"})
	require.NoError(t, err)

	assert.True(t, inst.Uninstall(ctx, "shout"))
	assert.False(t, inst.Uninstall(ctx, "shout"))
	assert.Zero(t, inst.Registry().Len())
}

func TestReplace(t *testing.T) {
	// --- Arrange ---
	inst := newTestInstaller()
	ctx := context.Background()
	first, err := inst.Install(ctx, upperPlot, model.KindPlotting, model.Meta{ID: "shout"})
	require.NoError(t, err)

	lowerPlot := `#r "strings"
function "plot" {
  params = [data]
  result = lower(data)
}
`

	// --- Act ---
	second, err := inst.Replace(ctx, "shout", lowerPlot)

	// --- Assert ---
	require.NoError(t, err)
	assert.NotEqual(t, first.Unit.ID(), second.Unit.ID())
	got, ok := inst.Registry().Lookup("shout")
	require.True(t, ok)
	assert.Same(t, second, got)
	out, err := got.Unit.Invoke(ctx, cty.StringVal("HI"))
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("hi"), out)
}

func TestReplace_FailureKeepsOldModule(t *testing.T) {
	inst := newTestInstaller()
	ctx := context.Background()
	first, err := inst.Install(ctx, upperPlot, model.KindPlotting, model.Meta{ID: "shout"})
	require.NoError(t, err)

	// Wrong entry point for the module's kind.
	_, err = inst.Replace(ctx, "shout", "function \"transform\" {\n  params = [t]\n  result = t\n}\n")
	require.Error(t, err)

	got, _ := inst.Registry().Lookup("shout")
	assert.Same(t, first, got)

	_, err = inst.Replace(ctx, "missing", upperPlot)
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestPrepareWithDefaultID(t *testing.T) {
	inst := newTestInstaller()
	ctx := context.Background()
	named := "module {\n  id = \"declared\"\n}\n" + "function \"plot\" {\n  params = [d]\n  result = d\n}\n"
	anonymous := "function \"plot\" {\n  params = [d]\n  result = d\n}\n"

	d1, err := inst.PrepareWithDefaultID(ctx, named, model.KindUnknown, "from-file")
	require.NoError(t, err)
	d2, err := inst.PrepareWithDefaultID(ctx, anonymous, model.KindUnknown, "from-file")
	require.NoError(t, err)

	assert.Equal(t, "declared", d1.ID)
	assert.Equal(t, "from-file", d2.ID)
	assert.Equal(t, model.KindPlotting, d2.Kind)
	assert.Zero(t, inst.Registry().Len())
}
