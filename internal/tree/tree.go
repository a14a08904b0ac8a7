// Package tree builds the navigable representation of a parsed document.
//
// Nodes live in one arena segment per forest root and refer to each other by
// NodeID. Segments are either built up front or materialized on first
// access; both modes assign identical ids.
package tree

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/format"
	"github.com/jacoelho/treeview/internal/stack"
	"github.com/jacoelho/treeview/internal/value"
)

var (
	ErrUnknownNode = errors.New("unknown node")
	// SkipChildren returned from a Walk callback skips the node's subtree.
	SkipChildren = errors.New("skip children")
)

// Source provides forest roots by position.
type Source interface {
	Len() int
	Root(i int) (value.Root, error)
}

type rootSlice []value.Root

func (r rootSlice) Len() int                       { return len(r) }
func (r rootSlice) Root(i int) (value.Root, error) { return r[i], nil }

// Roots adapts an already parsed forest to a Source.
func Roots(roots []value.Root) Source { return rootSlice(roots) }

// Node is one row of the tree.
type Node struct {
	ID      NodeID
	Parent  NodeID
	Key     Key
	HasKey  bool
	Kind    value.Kind
	Text    string
	Binary  bool
	Summary string
	Depth   int

	children []NodeID
	value    value.Value
}

// ChildCount is the number of direct children.
func (n Node) ChildCount() int { return len(n.children) }

type Meta struct {
	Format format.Format
	Name   string
}

// DefaultMaxNodes bounds a Document when Options leaves MaxNodes unset.
const DefaultMaxNodes = 10_000_000

type Options struct {
	// MaxNodes bounds the nodes of a Document; zero selects DefaultMaxNodes.
	MaxNodes int64
	// PreviewLen is the string preview length; zero selects DefaultPreviewLen.
	PreviewLen int
	// Lazy defers building a root until one of its nodes is requested.
	Lazy bool
}

type segment struct {
	once  sync.Once
	nodes []Node
	err   error
}

// Document is an immutable forest of nodes. It is safe for concurrent use.
type Document struct {
	ID     uuid.UUID
	Format format.Format
	Name   string

	src          Source
	opts         Options
	segments     []segment
	nodes        atomic.Int64
	materialized atomic.Int32
}

// Build creates a Document over src. Unless opts.Lazy is set every root is
// built before Build returns and the first failure is reported.
func Build(meta Meta, src Source, opts Options) (*Document, error) {
	if opts.PreviewLen == 0 {
		opts.PreviewLen = DefaultPreviewLen
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}

	doc := &Document{
		ID:       uuid.New(),
		Format:   meta.Format,
		Name:     meta.Name,
		src:      src,
		opts:     opts,
		segments: make([]segment, src.Len()),
	}

	if !opts.Lazy {
		for i := range doc.segments {
			if _, err := doc.segment(i); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

// Len is the number of forest roots.
func (d *Document) Len() int { return len(d.segments) }

// Roots lists the root ids in order without materializing anything.
func (d *Document) Roots() []NodeID {
	ids := make([]NodeID, len(d.segments))
	for i := range ids {
		ids[i] = MakeID(i, 0)
	}
	return ids
}

// Materialized is the number of roots built so far.
func (d *Document) Materialized() int { return int(d.materialized.Load()) }

// NodeCount is the number of nodes built so far.
func (d *Document) NodeCount() int64 { return d.nodes.Load() }

// Lazy reports whether roots are built on demand.
func (d *Document) Lazy() bool { return d.opts.Lazy }

func (d *Document) segment(root int) ([]Node, error) {
	if root < 0 || root >= len(d.segments) {
		return nil, fmt.Errorf("%w: root %d", ErrUnknownNode, root)
	}
	seg := &d.segments[root]
	seg.once.Do(func() {
		r, err := d.src.Root(root)
		if err != nil {
			seg.err = err
			return
		}
		seg.nodes, seg.err = d.flatten(root, r)
		d.materialized.Add(1)
	})
	return seg.nodes, seg.err
}

type pending struct {
	v      value.Value
	parent NodeID
	key    Key
	hasKey bool
	depth  int
}

// flatten lays out one root in pre-order.
func (d *Document) flatten(root int, r value.Root) ([]Node, error) {
	var nodes []Node
	work := stack.New[pending](16)
	work.Push(pending{
		v:      r.Value,
		parent: NoParent,
		key:    Key{Index: r.Index, IsIndex: true},
		hasKey: r.Indexed,
	})

	for !work.IsEmpty() {
		p, _ := work.Pop()

		local := len(nodes)
		if local >= maxLocal {
			return nil, docerr.New(docerr.ResourceLimit, "root %d has more than %d nodes", root, maxLocal)
		}
		if total := d.nodes.Add(1); total > d.opts.MaxNodes {
			return nil, docerr.New(docerr.ResourceLimit, "document exceeds %d nodes", d.opts.MaxNodes)
		}

		id := MakeID(root, local)
		n := Node{
			ID:      id,
			Parent:  p.parent,
			Key:     p.key,
			HasKey:  p.hasKey,
			Kind:    p.v.Kind(),
			Text:    p.v.Text(),
			Binary:  p.v.IsBinary(),
			Summary: Summary(p.v, d.opts.PreviewLen),
			Depth:   p.depth,
			value:   p.v,
		}
		if !p.hasKey {
			n.Key = Key{}
		}
		if n.Kind.IsContainer() {
			n.children = make([]NodeID, 0, p.v.Len())
		}
		nodes = append(nodes, n)

		if p.parent != NoParent {
			parent := &nodes[p.parent.Local()]
			parent.children = append(parent.children, id)
		}

		switch p.v.Kind() {
		case value.Array:
			items := p.v.Items()
			for i := len(items) - 1; i >= 0; i-- {
				work.Push(pending{v: items[i], parent: id, key: Key{Index: i, IsIndex: true}, hasKey: true, depth: p.depth + 1})
			}
		case value.Object:
			members := p.v.Members()
			for i := len(members) - 1; i >= 0; i-- {
				work.Push(pending{v: members[i].Value, parent: id, key: Key{Name: members[i].Key}, hasKey: true, depth: p.depth + 1})
			}
		}
	}
	return nodes, nil
}

// Node returns the node with the given id, building its root if needed.
func (d *Document) Node(id NodeID) (Node, error) {
	nodes, err := d.segment(id.Root())
	if err != nil {
		return Node{}, err
	}
	if id.Local() >= len(nodes) {
		return Node{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return nodes[id.Local()], nil
}

// Children returns the ordered child ids of a node. The slice must not be
// modified.
func (d *Document) Children(id NodeID) ([]NodeID, error) {
	n, err := d.Node(id)
	if err != nil {
		return nil, err
	}
	return n.children, nil
}

// Parent returns the parent id, NoParent for roots.
func (d *Document) Parent(id NodeID) (NodeID, error) {
	n, err := d.Node(id)
	if err != nil {
		return NoParent, err
	}
	return n.Parent, nil
}

// Path returns the keys leading from the forest root to id.
func (d *Document) Path(id NodeID) (Path, error) {
	nodes, err := d.segment(id.Root())
	if err != nil {
		return nil, err
	}
	if id.Local() >= len(nodes) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}

	var path Path
	for cur := id; cur != NoParent; {
		n := nodes[cur.Local()]
		if n.HasKey {
			path = append(path, n.Key)
		}
		cur = n.Parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Value returns the subtree rooted at id as a value.
func (d *Document) Value(id NodeID) (value.Value, error) {
	n, err := d.Node(id)
	if err != nil {
		return value.Value{}, err
	}
	return n.value, nil
}

// Literal returns the full display text of a node.
func (d *Document) Literal(id NodeID) (string, error) {
	v, err := d.Value(id)
	if err != nil {
		return "", err
	}
	return Literal(v), nil
}

// Resolve follows rel from the given root position. rel does not include the
// root's own label.
func (d *Document) Resolve(root int, rel Path) (NodeID, error) {
	nodes, err := d.segment(root)
	if err != nil {
		return NoParent, err
	}

	cur := MakeID(root, 0)
	for _, k := range rel {
		found := false
		for _, child := range nodes[cur.Local()].children {
			c := nodes[child.Local()]
			if c.Key.IsIndex == k.IsIndex && c.Key.Index == k.Index && c.Key.Name == k.Name {
				cur, found = child, true
				break
			}
		}
		if !found {
			return NoParent, fmt.Errorf("%w: %s under root %d", ErrUnknownNode, rel, root)
		}
	}
	return cur, nil
}

// Walk visits every node in pre-order, following children in order. Returning
// SkipChildren from fn skips the subtree; any other error stops the walk.
func (d *Document) Walk(fn func(Node) error) error {
	for root := range d.segments {
		if err := d.WalkRoot(root, fn); err != nil {
			return err
		}
	}
	return nil
}

// WalkRoot is Walk restricted to one forest root.
func (d *Document) WalkRoot(root int, fn func(Node) error) error {
	nodes, err := d.segment(root)
	if err != nil {
		return err
	}

	work := stack.New[NodeID](16)
	work.Push(MakeID(root, 0))
	for !work.IsEmpty() {
		id, _ := work.Pop()
		n := nodes[id.Local()]
		if err := fn(n); err != nil {
			if errors.Is(err, SkipChildren) {
				continue
			}
			return err
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			work.Push(n.children[i])
		}
	}
	return nil
}
