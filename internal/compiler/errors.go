// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package compiler

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/treeplug/internal/diag"
)

// CompileError is returned when a compilation produces error diagnostics.
type CompileError struct {
	Filename    string
	Diagnostics diag.Diagnostics
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling %s failed:\n%s", e.Filename, e.Diagnostics.Error())
}

// HasClass reports whether err is a *CompileError carrying a diagnostic of
// the given class.
func HasClass(err error, class diag.Class) bool {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return false
	}
	return len(ce.Diagnostics.OfClass(class)) > 0
}
