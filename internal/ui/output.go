package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Output writes user-facing session messages with consistent styling.
type Output struct {
	w io.Writer

	notice  *color.Color
	success *color.Color
	warning *color.Color
	failure *color.Color
}

// NewOutput creates a new output sink on the given writer.
func NewOutput(w io.Writer, noColor bool) *Output {
	o := &Output{
		w:       w,
		notice:  color.New(color.FgCyan),
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed),
	}

	if noColor {
		for _, c := range []*color.Color{o.notice, o.success, o.warning, o.failure} {
			c.DisableColor()
		}
	}

	return o
}

// Writer returns the underlying writer.
func (o *Output) Writer() io.Writer {
	return o.w
}

// Content writes generated content verbatim.
func (o *Output) Content(s string) {
	fmt.Fprintln(o.w, s)
}

// Noticef writes an informational message.
func (o *Output) Noticef(format string, args ...interface{}) {
	o.notice.Fprintf(o.w, format+"\n", args...)
}

// Successf writes a success message.
func (o *Output) Successf(format string, args ...interface{}) {
	o.success.Fprintf(o.w, format+"\n", args...)
}

// Warningf writes a warning message.
func (o *Output) Warningf(format string, args ...interface{}) {
	o.warning.Fprintf(o.w, format+"\n", args...)
}

// Errorf writes an error message.
func (o *Output) Errorf(format string, args ...interface{}) {
	o.failure.Fprintf(o.w, format+"\n", args...)
}
