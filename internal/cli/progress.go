package cli

import (
	"fmt"
	"io"
)

// quietMode suppresses progress output.
var quietMode bool

// SetQuietMode enables or disables quiet mode (minimal output).
func SetQuietMode(quiet bool) {
	quietMode = quiet
}

// progressWriter prints reconciliation status lines for the user.
type progressWriter struct {
	w io.Writer
}

func newProgress(w io.Writer) *progressWriter {
	return &progressWriter{w: w}
}

// Output prints a top-level status line.
func (p *progressWriter) Output(msg string) {
	if !quietMode {
		fmt.Fprintf(p.w, "==> %s\n", msg)
	}
}

// Detail prints an indented sub-step.
func (p *progressWriter) Detail(msg string) {
	if !quietMode {
		fmt.Fprintf(p.w, "    %s\n", msg)
	}
}
