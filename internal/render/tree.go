package render

import (
	"fmt"
	"strings"

	"github.com/jacoelho/treeview/internal/search"
	"github.com/jacoelho/treeview/internal/tree"
)

const (
	branch     = "├── "
	lastBranch = "└── "
	pipe       = "│   "
	blank      = "    "
)

// TreeOptions controls Tree output.
type TreeOptions struct {
	// Depth limits rendered levels below each root; zero renders everything.
	Depth int
	// Search highlights the matches of document DocIndex.
	Search   *search.Session
	DocIndex int
}

type hits struct {
	key   map[tree.NodeID]search.Match
	value map[tree.NodeID]bool
}

func collectHits(opts TreeOptions) hits {
	h := hits{key: map[tree.NodeID]search.Match{}, value: map[tree.NodeID]bool{}}
	if opts.Search == nil {
		return h
	}
	for _, m := range opts.Search.Matches() {
		if m.Doc != opts.DocIndex {
			continue
		}
		if m.Field == search.FieldKey {
			h.key[m.Node] = m
		} else {
			h.value[m.Node] = true
		}
	}
	return h
}

// Tree draws every root of doc with box-drawing guides. When a search is
// given, matched lines carry a "*" gutter and the matched text is
// highlighted.
func (p *Printer) Tree(doc *tree.Document, opts TreeOptions) error {
	h := collectHits(opts)
	for _, root := range doc.Roots() {
		if err := p.node(doc, root, "", "", opts, h); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) node(doc *tree.Document, id tree.NodeID, lead, childLead string, opts TreeOptions, h hits) error {
	n, err := doc.Node(id)
	if err != nil {
		return err
	}

	var line strings.Builder
	if opts.Search != nil {
		if opts.Search.Contains(opts.DocIndex, id) {
			line.WriteString("* ")
		} else {
			line.WriteString("  ")
		}
	}
	line.WriteString(p.pal.dim.Sprint(lead))
	line.WriteString(p.label(n, h))
	line.WriteString(": ")
	line.WriteString(p.summary(n.Kind, n.Summary, h.value[id]))
	fmt.Fprintln(p.w, line.String())

	if opts.Depth > 0 && n.Depth >= opts.Depth {
		return nil
	}

	children, err := doc.Children(id)
	if err != nil {
		return err
	}
	for i, child := range children {
		next, nextChild := branch, pipe
		if i == len(children)-1 {
			next, nextChild = lastBranch, blank
		}
		if err := p.node(doc, child, childLead+next, childLead+nextChild, opts, h); err != nil {
			return err
		}
	}
	return nil
}

// label renders the key of n. Unlabeled roots show as "$".
func (p *Printer) label(n tree.Node, h hits) string {
	if !n.HasKey {
		return p.pal.key.Sprint("$")
	}
	if n.Key.IsIndex {
		return p.pal.index.Sprint(n.Key.Label())
	}

	name := n.Key.Name
	m, ok := h.key[n.ID]
	if !ok {
		return p.pal.key.Sprint(name)
	}
	end := m.Offset + m.Length
	return p.pal.key.Sprint(name[:m.Offset]) + p.pal.hit.Sprint(name[m.Offset:end]) + p.pal.key.Sprint(name[end:])
}
