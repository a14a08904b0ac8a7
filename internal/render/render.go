// Package render prints documents, search hits and query results for the
// terminal.
package render

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/jacoelho/treeview/internal/query"
	"github.com/jacoelho/treeview/internal/search"
	"github.com/jacoelho/treeview/internal/tree"
	"github.com/jacoelho/treeview/internal/value"
)

// UseColor resolves an auto/always/never setting for the given output.
func UseColor(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type palette struct {
	key, index, str, num, lit, container, hit, header, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		key:       color.New(color.FgBlue, color.Bold),
		index:     color.New(color.FgHiBlack),
		str:       color.New(color.FgGreen),
		num:       color.New(color.FgCyan),
		lit:       color.New(color.FgMagenta),
		container: color.New(color.FgYellow),
		hit:       color.New(color.BgYellow, color.FgBlack),
		header:    color.New(color.Bold, color.Underline),
		dim:       color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.key, p.index, p.str, p.num, p.lit, p.container, p.hit, p.header, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Printer writes to w. It is not safe for concurrent use.
type Printer struct {
	w     *bufio.Writer
	color bool
	pal   palette
}

func New(w io.Writer, colored bool) *Printer {
	return &Printer{w: bufio.NewWriter(w), color: colored, pal: newPalette(colored)}
}

// Flush writes any buffered output.
func (p *Printer) Flush() error { return p.w.Flush() }

// Header introduces a document when several are printed.
func (p *Printer) Header(doc *tree.Document) {
	roots := "roots"
	if doc.Len() == 1 {
		roots = "root"
	}
	fmt.Fprintln(p.w, p.pal.header.Sprintf("%s (%s, %d %s)", doc.Name, doc.Format, doc.Len(), roots))
}

// Failure reports a file that could not be loaded.
func (p *Printer) Failure(err error) {
	fmt.Fprintf(p.w, "%s %v\n", p.pal.hit.Sprint("error:"), err)
}

// JSON prints every root as indented JSON, strings verbatim.
func (p *Printer) JSON(doc *tree.Document) error {
	for _, id := range doc.Roots() {
		lit, err := doc.Literal(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(p.w, lit)
	}
	return nil
}

// Results prints JSONPath results, as "path = summary" lines or as JSON
// objects, one per line.
func (p *Printer) Results(results []query.Result, asJSON bool, previewLen int) {
	for _, r := range results {
		if asJSON {
			line := []byte(`{"path":`)
			line = value.AppendQuoted(line, r.Path.String())
			line = append(line, `,"value":`...)
			line = value.AppendJSON(line, r.Value)
			line = append(line, '}', '\n')
			p.w.Write(line)
			continue
		}
		fmt.Fprintf(p.w, "%s = %s\n", p.pal.key.Sprint(r.Path.String()), p.summary(r.Value.Kind(), tree.Summary(r.Value, previewLen), false))
	}
}

// SearchSummary reports the size of a search session.
func (p *Printer) SearchSummary(s *search.Session) {
	if s.Len() == 0 {
		fmt.Fprintf(p.w, "no matches for %q%s\n", s.Query(), caseNote(s))
		return
	}
	fmt.Fprintf(p.w, "%d matches in %d nodes for %q%s\n", s.Len(), s.MatchedNodes(), s.Query(), caseNote(s))
}

func caseNote(s *search.Session) string {
	if s.CaseSensitive() {
		return " (case-sensitive)"
	}
	return ""
}

func (p *Printer) summary(kind value.Kind, s string, hit bool) string {
	if hit {
		return p.pal.hit.Sprint(s)
	}
	switch kind {
	case value.String:
		return p.pal.str.Sprint(s)
	case value.Number:
		return p.pal.num.Sprint(s)
	case value.Array, value.Object:
		return p.pal.container.Sprint(s)
	default:
		return p.pal.lit.Sprint(s)
	}
}
