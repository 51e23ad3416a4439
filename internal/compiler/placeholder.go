// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package compiler

import (
	"fmt"

	"github.com/specialistvlad/treeplug/internal/model"
)

// placeholderTemplate is the stand-in module: an entry function that hands
// its input back untouched. It needs no library.
const placeholderTemplate = `function %q {
  params = [input]
  result = input
}
`

// PlaceholderSource returns the fixed placeholder text for a kind.
func PlaceholderSource(kind model.Kind) string {
	return fmt.Sprintf(placeholderTemplate, kind.EntryPoint())
}
