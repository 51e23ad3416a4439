package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type stubUnit struct {
	kind Kind
	meta Meta
}

func (u stubUnit) ID() string { return "img-1" }
func (u stubUnit) Source() string { return "" }
func (u stubUnit) Kind() Kind { return u.kind }
func (u stubUnit) Meta() Meta { return u.meta }
func (u stubUnit) Invoke(_ context.Context, arg cty.Value) (cty.Value, error) {
	return arg, nil
}

func TestParseKind(t *testing.T) {
	testCases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "plotting", want: KindPlotting},
		{in: "  Further-Transformation ", want: KindFurtherTransformation},
		{in: "FILE_TYPE", want: KindFileType},
		{in: "", want: KindUnknown},
		{in: "unknown", want: KindUnknown},
		{in: "sculpture", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseKind(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKindEntryPoints(t *testing.T) {
	for _, k := range Kinds {
		require.True(t, k.Valid(), k.String())
		back, ok := KindForEntryPoint(k.EntryPoint())
		require.True(t, ok)
		assert.Equal(t, k, back)
	}

	assert.False(t, KindUnknown.Valid())
	assert.Empty(t, KindUnknown.EntryPoint())
	assert.Equal(t, "kind(42)", Kind(42).String())
	_, ok := KindForEntryPoint("main")
	assert.False(t, ok)
}

func TestNewDescriptor(t *testing.T) {
	yes, no := true, false
	declared := Meta{ID: "hist", Name: "Histogram", Help: "Bins leaves", Repeatable: &yes}

	t.Run("declared metadata is used", func(t *testing.T) {
		d, err := NewDescriptor(stubUnit{kind: KindPlotting, meta: declared}, Meta{})
		require.NoError(t, err)
		assert.Equal(t, "hist", d.ID)
		assert.Equal(t, "Histogram", d.Name)
		assert.Equal(t, "Bins leaves", d.HelpText)
		assert.Equal(t, KindPlotting, d.Kind)
		assert.True(t, d.Repeatable)
	})

	t.Run("override wins", func(t *testing.T) {
		d, err := NewDescriptor(stubUnit{kind: KindPlotting, meta: declared}, Meta{ID: " bars ", Icon: "chart", Repeatable: &no})
		require.NoError(t, err)
		assert.Equal(t, "bars", d.ID)
		assert.Equal(t, "Histogram", d.Name)
		assert.Equal(t, "chart", d.Icon)
		assert.False(t, d.Repeatable)
	})

	t.Run("name falls back to id", func(t *testing.T) {
		d, err := NewDescriptor(stubUnit{kind: KindAction}, Meta{ID: "export"})
		require.NoError(t, err)
		assert.Equal(t, "export", d.Name)
		assert.False(t, d.Repeatable)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := NewDescriptor(stubUnit{kind: KindAction}, Meta{ID: "   "})
		require.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("nil unit", func(t *testing.T) {
		_, err := NewDescriptor(nil, Meta{ID: "x"})
		require.Error(t, err)
	})
}
