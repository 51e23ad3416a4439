package loader

import (
	"fmt"
	"io"

	"github.com/specialistvlad/treeplug/internal/diag"
)

// FileReport is the outcome of loading one file.
type FileReport struct {
	Path string
	// ID is the module the file installed, or still has installed.
	ID          string
	Installed   bool
	Unchanged   bool
	Placeholder bool
	Warnings    diag.Diagnostics
	Err         error
}

// Report summarises one LoadAll pass.
type Report struct {
	Files []FileReport
	// Removed lists files that disappeared since the previous pass.
	Removed []string
}

// Installed counts the files installed or replaced in this pass.
func (r *Report) Installed() int {
	n := 0
	for _, f := range r.Files {
		if f.Installed {
			n++
		}
	}
	return n
}

// Unchanged counts the files skipped because their content did not change.
func (r *Report) Unchanged() int {
	n := 0
	for _, f := range r.Files {
		if f.Unchanged {
			n++
		}
	}
	return n
}

// Failed returns the reports of files that could not be installed.
func (r *Report) Failed() []FileReport {
	var out []FileReport
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Print writes one line per file, followed by its warnings or error.
func (r *Report) Print(w io.Writer) {
	for _, f := range r.Files {
		switch {
		case f.Err != nil:
			fmt.Fprintf(w, "FAIL %s\n%v\n", f.Path, f.Err)
		case f.Unchanged:
			fmt.Fprintf(w, "SKIP %s (%s, unchanged)\n", f.Path, f.ID)
		case f.Placeholder:
			fmt.Fprintf(w, "STUB %s (%s)\n", f.Path, f.ID)
		default:
			fmt.Fprintf(w, "OK   %s (%s)\n", f.Path, f.ID)
		}
		for _, d := range f.Warnings {
			fmt.Fprintf(w, "  %s\n", d.String())
		}
	}
	for _, p := range r.Removed {
		fmt.Fprintf(w, "GONE %s\n", p)
	}
}
