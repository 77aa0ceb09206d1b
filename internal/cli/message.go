package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes colored status lines: info in cyan, alerts in red, highlights in yellow.
type Printer struct {
	out       io.Writer
	info      *color.Color
	alert     *color.Color
	highlight *color.Color
}

// NewPrinter returns a Printer writing to out. Colors follow color.NoColor unless noColor is set.
func NewPrinter(out io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:       out,
		info:      color.New(color.FgCyan),
		alert:     color.New(color.FgRed),
		highlight: color.New(color.FgYellow),
	}
	if noColor {
		p.info.DisableColor()
		p.alert.DisableColor()
		p.highlight.DisableColor()
	}
	return p
}

// Writer returns the underlying output.
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) Info(format string, args ...interface{}) {
	p.info.Fprintln(p.out, fmt.Sprintf(format, args...))
}

func (p *Printer) Alert(format string, args ...interface{}) {
	p.alert.Fprintln(p.out, fmt.Sprintf(format, args...))
}

func (p *Printer) Highlight(format string, args ...interface{}) {
	p.highlight.Fprintln(p.out, fmt.Sprintf(format, args...))
}

// Plain prints without color.
func (p *Printer) Plain(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}
