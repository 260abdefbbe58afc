// Package textfmt holds the indentation-aware writer and the token
// formatting shared by everything that emits controller text.
package textfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer emits indented lines and keeps the first write error.
type Writer struct {
	w      io.Writer
	indent int
	err    error
}

// New returns a Writer on w.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Line writes one formatted line at the current indentation.
func (tw *Writer) Line(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, "%s%s\n", strings.Repeat("  ", tw.indent), fmt.Sprintf(format, args...))
}

// Open writes a line ending in "{" and indents what follows.
func (tw *Writer) Open(format string, args ...any) {
	tw.Line(format+" {", args...)
	tw.indent++
}

// Close dedents and writes "}".
func (tw *Writer) Close() {
	tw.indent--
	tw.Line("}")
}

// Fail records err unless an earlier error is already held.
func (tw *Writer) Fail(err error) {
	if tw.err == nil {
		tw.err = err
	}
}

// Err returns the first error met while writing.
func (tw *Writer) Err() error {
	return tw.err
}

// Quote renders s as a double-quoted token.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// Num renders v in its shortest float32 form.
func Num(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// Coords renders the first dims components of p as "( x y ... )". Missing
// components are written as zero.
func Coords(p []float32, dims int) string {
	parts := make([]string, dims)
	for k := range parts {
		var v float32
		if k < len(p) {
			v = p[k]
		}
		parts[k] = Num(v)
	}
	return "( " + strings.Join(parts, " ") + " )"
}
