// Package search finds substring matches in node keys and scalar values and
// keeps a cursor for cyclic navigation over them.
package search

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/jacoelho/treeview/internal/tree"
)

// Field tells which part of a node matched.
type Field uint8

const (
	FieldKey Field = iota
	FieldValue
)

func (f Field) String() string {
	if f == FieldKey {
		return "key"
	}
	return "value"
}

// Match is a single hit. Offset and Length are byte positions within the
// key or the scalar text.
type Match struct {
	Doc    int
	Node   tree.NodeID
	Path   tree.Path
	Field  Field
	Offset int
	Length int
}

type Options struct {
	CaseSensitive bool
}

// Session is the immutable result of one query plus a navigation cursor.
// A new query creates a new Session. The cursor is not safe for concurrent use.
type Session struct {
	query   string
	opts    Options
	matches []Match
	hits    []*roaring64.Bitmap
	cursor  int
}

// Search walks docs in order and their nodes in pre-order. A node's key match
// precedes its value match. An empty query matches nothing.
func Search(ctx context.Context, docs []*tree.Document, query string, opts Options) (*Session, error) {
	s := &Session{
		query:  query,
		opts:   opts,
		hits:   make([]*roaring64.Bitmap, len(docs)),
		cursor: -1,
	}
	for i := range s.hits {
		s.hits[i] = roaring64.New()
	}
	if query == "" {
		return s, nil
	}

	m := newMatcher(query, opts.CaseSensitive)
	for di, doc := range docs {
		visited := 0
		err := doc.Walk(func(n tree.Node) error {
			if visited++; visited%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			if n.HasKey && !n.Key.IsIndex {
				if start, end := m.index(n.Key.Name); start >= 0 {
					if err := s.add(doc, di, n.ID, FieldKey, start, end); err != nil {
						return err
					}
				}
			}
			if !n.Kind.IsContainer() {
				if start, end := m.index(n.Text); start >= 0 {
					if err := s.add(doc, di, n.ID, FieldValue, start, end); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", doc.Name, err)
		}
	}
	return s, nil
}

func (s *Session) add(doc *tree.Document, di int, id tree.NodeID, field Field, start, end int) error {
	path, err := doc.Path(id)
	if err != nil {
		return err
	}
	s.matches = append(s.matches, Match{
		Doc:    di,
		Node:   id,
		Path:   path,
		Field:  field,
		Offset: start,
		Length: end - start,
	})
	s.hits[di].Add(uint64(id))
	return nil
}

func (s *Session) Query() string { return s.query }

func (s *Session) CaseSensitive() bool { return s.opts.CaseSensitive }

func (s *Session) Len() int { return len(s.matches) }

// Matches returns every match in order. The slice must not be modified.
func (s *Session) Matches() []Match { return s.matches }

// Contains reports whether node id of document doc has at least one match.
func (s *Session) Contains(doc int, id tree.NodeID) bool {
	if doc < 0 || doc >= len(s.hits) {
		return false
	}
	return s.hits[doc].Contains(uint64(id))
}

// MatchedNodes is the number of distinct nodes with a match.
func (s *Session) MatchedNodes() uint64 {
	var total uint64
	for _, h := range s.hits {
		total += h.GetCardinality()
	}
	return total
}

// Current returns the match under the cursor.
func (s *Session) Current() (Match, bool) {
	if s.cursor < 0 || s.cursor >= len(s.matches) {
		return Match{}, false
	}
	return s.matches[s.cursor], true
}

// Next advances the cursor, wrapping from the last match to the first.
func (s *Session) Next() (Match, bool) {
	if len(s.matches) == 0 {
		return Match{}, false
	}
	s.cursor = (s.cursor + 1) % len(s.matches)
	return s.matches[s.cursor], true
}

// Previous moves the cursor back, wrapping from the first match to the last.
// Before any movement it selects the last match.
func (s *Session) Previous() (Match, bool) {
	if len(s.matches) == 0 {
		return Match{}, false
	}
	if s.cursor <= 0 {
		s.cursor = len(s.matches) - 1
	} else {
		s.cursor--
	}
	return s.matches[s.cursor], true
}
