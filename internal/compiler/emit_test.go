package compiler

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/treeplug/internal/diag"
	"github.com/stretchr/testify/assert"
)

func TestSortByPosition_SubjectlessLast(t *testing.T) {
	at := func(b int) *hcl.Range {
		return &hcl.Range{Filename: "m.hcl", Start: hcl.Pos{Byte: b}}
	}
	diags := diag.Diagnostics{
		{Code: "none-1"},
		{Code: "b", Subject: at(40)},
		{Code: "none-2"},
		{Code: "a", Subject: at(3)},
		{Code: "c", Subject: at(90)},
	}

	sortByPosition(diags)

	got := make([]string, len(diags))
	for i, d := range diags {
		got[i] = d.Code
	}
	assert.Equal(t, []string{"a", "b", "c", "none-1", "none-2"}, got)
}
