// Package query evaluates JSONPath expressions against document trees and
// maps every located result back to its node.
package query

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/theory/jsonpath"
	"github.com/theory/jsonpath/spec"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/tree"
	"github.com/jacoelho/treeview/internal/value"
)

// Result is one selected node.
type Result struct {
	Node  tree.NodeID
	Path  tree.Path
	Value value.Value
}

// Query is a compiled JSONPath expression. It is safe for concurrent use.
type Query struct {
	expr string
	path *jsonpath.Path
}

// Compile parses expr. Syntax errors are reported as ParseError.
func Compile(expr string) (*Query, error) {
	if expr == "" {
		return nil, docerr.New(docerr.ParseError, "empty JSONPath expression")
	}
	p, err := jsonpath.Parse(expr)
	if err != nil {
		return nil, docerr.Wrap(docerr.ParseError, err, "invalid JSONPath %q", expr)
	}
	return &Query{expr: expr, path: p}, nil
}

func (q *Query) String() string { return q.expr }

// Select compiles expr and runs it over doc.
func Select(ctx context.Context, doc *tree.Document, expr string) ([]Result, error) {
	q, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return q.Select(ctx, doc)
}

// Select runs the query against every forest root of doc. Results of one
// root are in document order; roots follow each other in order.
func (q *Query) Select(ctx context.Context, doc *tree.Document) ([]Result, error) {
	var out []Result
	for root := range doc.Len() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rootID := tree.MakeID(root, 0)
		v, err := doc.Value(rootID)
		if err != nil {
			return nil, err
		}

		located := q.path.SelectLocated(toAny(v))
		ids := make([]tree.NodeID, 0, len(located))
		for _, ln := range located {
			rel, err := relativePath(ln.Path)
			if err != nil {
				return nil, docerr.Wrap(docerr.Internal, err, "jsonpath %q", q.expr)
			}
			id, err := doc.Resolve(root, rel)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		// Object members are visited in map order; node ids restore document order.
		slices.Sort(ids)

		for _, id := range ids {
			path, err := doc.Path(id)
			if err != nil {
				return nil, err
			}
			n, err := doc.Value(id)
			if err != nil {
				return nil, err
			}
			out = append(out, Result{Node: id, Path: path, Value: n})
		}
	}
	return out, nil
}

// toAny converts to the plain Go shape the JSONPath evaluator understands.
func toAny(v value.Value) any {
	switch v.Kind() {
	case value.Null:
		return nil
	case value.Bool:
		return v.Bool()
	case value.Number:
		lit := v.Literal()
		if v.IsInt() {
			if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
				return i
			}
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return lit
		}
		return f
	case value.String:
		return v.Str()
	case value.Array:
		items := v.Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toAny(item)
		}
		return out
	case value.Object:
		members := v.Members()
		out := make(map[string]any, len(members))
		for _, m := range members {
			out[m.Key] = toAny(m.Value)
		}
		return out
	default:
		panic(fmt.Sprintf("query: unexpected kind %v", v.Kind()))
	}
}

// relativePath converts the located path of a result into steps below the
// root it was selected from.
func relativePath(np spec.NormalizedPath) (tree.Path, error) {
	path := make(tree.Path, 0, len(np))
	for _, sel := range np {
		switch s := sel.(type) {
		case spec.Name:
			path = append(path, tree.Key{Name: string(s)})
		case spec.Index:
			path = append(path, tree.Key{Index: int(s), IsIndex: true})
		default:
			return nil, fmt.Errorf("unexpected path selector %T", sel)
		}
	}
	return path, nil
}
