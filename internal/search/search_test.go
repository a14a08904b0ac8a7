package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacoelho/treeview/internal/format"
	"github.com/jacoelho/treeview/internal/parse"
	"github.com/jacoelho/treeview/internal/tree"
)

func build(t *testing.T, f format.Format, input string) *tree.Document {
	t.Helper()

	roots, err := parse.Parse(f, []byte(input), parse.Options{})
	if err != nil {
		t.Fatalf("parse.Parse() error = %v", err)
	}
	doc, err := tree.Build(tree.Meta{Format: f, Name: "test"}, tree.Roots(roots), tree.Options{})
	if err != nil {
		t.Fatalf("tree.Build() error = %v", err)
	}
	return doc
}

func searchOne(ctx context.Context, doc *tree.Document, query string, opts Options) (*Session, error) {
	return Search(ctx, []*tree.Document{doc}, query, opts)
}

type hit struct {
	Path   string
	Field  Field
	Offset int
	Length int
}

func hits(s *Session) []hit {
	var out []hit
	for _, m := range s.Matches() {
		out = append(out, hit{Path: m.Path.String(), Field: m.Field, Offset: m.Offset, Length: m.Length})
	}
	return out
}

func TestSearchCaseToggle(t *testing.T) {
	t.Parallel()

	doc := build(t, format.JSON, `{"Foo":"bar","x":"FOO and foo","list":["food",1]}`)

	tests := []struct {
		name          string
		caseSensitive bool
		want          []hit
	}{
		{
			name:          "insensitive",
			caseSensitive: false,
			want: []hit{
				{"$.Foo", FieldKey, 0, 3},
				{"$.x", FieldValue, 0, 3},
				{"$.list[0]", FieldValue, 0, 3},
			},
		},
		{
			name:          "sensitive",
			caseSensitive: true,
			want: []hit{
				{"$.x", FieldValue, 8, 3},
				{"$.list[0]", FieldValue, 0, 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := searchOne(context.Background(), doc, "foo", Options{CaseSensitive: tt.caseSensitive})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, hits(s)); diff != "" {
				t.Errorf("Search() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchKeyAndValueOnSameNode(t *testing.T) {
	t.Parallel()

	doc := build(t, format.YAML, "name: my name\nother: 1\n")

	s, err := searchOne(context.Background(), doc, "name", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []hit{
		{"$.name", FieldKey, 0, 4},
		{"$.name", FieldValue, 3, 4},
	}
	if diff := cmp.Diff(want, hits(s)); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}
	if s.MatchedNodes() != 1 {
		t.Errorf("MatchedNodes() = %d, want 1", s.MatchedNodes())
	}
}

func TestSearchSkipsIndexLabels(t *testing.T) {
	t.Parallel()

	doc := build(t, format.JSON, `["a","b","c"]`)

	s, err := searchOne(context.Background(), doc, "1", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSearchUnicodeFolding(t *testing.T) {
	t.Parallel()

	doc := build(t, format.JSON, `{"city":"ZÜRICH"}`)

	s, err := searchOne(context.Background(), doc, "zürich", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []hit{{"$.city", FieldValue, 0, len("ZÜRICH")}}
	if diff := cmp.Diff(want, hits(s)); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchFoldingIgnoresOnlyCase(t *testing.T) {
	t.Parallel()

	doc := build(t, format.JSON, `{"a":"a\u00adb","b":"a\u200bb","c":"a\u00adb AB","d":"xab"}`)

	tests := []struct {
		name          string
		caseSensitive bool
		want          []hit
	}{
		{
			name: "insensitive",
			want: []hit{
				{"$.c", FieldValue, 5, 2},
				{"$.d", FieldValue, 1, 2},
			},
		},
		{
			name:          "sensitive",
			caseSensitive: true,
			want: []hit{
				{"$.d", FieldValue, 1, 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := searchOne(context.Background(), doc, "ab", Options{CaseSensitive: tt.caseSensitive})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, hits(s)); diff != "" {
				t.Errorf("Search() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNavigationWraps(t *testing.T) {
	t.Parallel()

	doc := build(t, format.JSON, `{"a":"x","b":"x","c":"x"}`)
	s, err := searchOne(context.Background(), doc, "x", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if _, ok := s.Current(); ok {
		t.Error("Current() before navigation should report false")
	}

	var order []string
	for range 4 {
		m, ok := s.Next()
		if !ok {
			t.Fatal("Next() = false")
		}
		order = append(order, m.Path.String())
	}
	if diff := cmp.Diff([]string{"$.a", "$.b", "$.c", "$.a"}, order); diff != "" {
		t.Errorf("Next() order mismatch (-want +got):\n%s", diff)
	}

	m, _ := s.Previous()
	if m.Path.String() != "$.c" {
		t.Errorf("Previous() from first = %s, want $.c", m.Path.String())
	}
	cur, ok := s.Current()
	if !ok || cur.Path.String() != "$.c" {
		t.Errorf("Current() = %s, %v, want $.c", cur.Path.String(), ok)
	}
}

func TestPreviousBeforeNext(t *testing.T) {
	t.Parallel()

	doc := build(t, format.JSON, `["x","x"]`)
	s, err := searchOne(context.Background(), doc, "x", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	m, ok := s.Previous()
	if !ok || m.Path.String() != "$[1]" {
		t.Errorf("Previous() = %s, %v, want $[1]", m.Path.String(), ok)
	}
}

func TestZeroMatches(t *testing.T) {
	t.Parallel()

	doc := build(t, format.JSON, `{"a":1}`)

	for _, query := range []string{"", "zzz"} {
		s, err := searchOne(context.Background(), doc, query, Options{})
		if err != nil {
			t.Fatalf("Search(%q) error = %v", query, err)
		}
		if _, ok := s.Next(); ok {
			t.Errorf("Next() with query %q = true", query)
		}
		if _, ok := s.Previous(); ok {
			t.Errorf("Previous() with query %q = true", query)
		}
		if s.Len() != 0 {
			t.Errorf("Len() with query %q = %d", query, s.Len())
		}
	}
}

func TestSearchAcrossDocuments(t *testing.T) {
	t.Parallel()

	first := build(t, format.JSONL, "{\"k\":\"hit\"}\n{\"k\":\"miss\"}\n")
	second := build(t, format.JSON, `{"hit":true}`)

	s, err := Search(context.Background(), []*tree.Document{first, second}, "hit", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	m := s.Matches()
	if m[0].Doc != 0 || m[0].Path.String() != "$[0].k" {
		t.Errorf("match 0 = doc %d %s", m[0].Doc, m[0].Path.String())
	}
	if m[1].Doc != 1 || m[1].Field != FieldKey {
		t.Errorf("match 1 = doc %d field %v", m[1].Doc, m[1].Field)
	}
	if !s.Contains(1, m[1].Node) {
		t.Errorf("Contains(1, %s) = false", m[1].Node)
	}
	if s.Contains(1, tree.MakeID(0, 0)) {
		t.Error("Contains(1, root) = true")
	}
	if s.Contains(0, tree.MakeID(1, 1)) {
		t.Error("Contains(0, second row key) = true")
	}
	if s.Contains(5, m[1].Node) {
		t.Error("Contains() for unknown document = true")
	}
}

func TestSearchCancelled(t *testing.T) {
	t.Parallel()

	input := make([]byte, 0, 64*1024)
	input = append(input, '[')
	for i := 0; i < 10000; i++ {
		if i > 0 {
			input = append(input, ',')
		}
		input = append(input, '1')
	}
	input = append(input, ']')
	doc := build(t, format.JSON, string(input))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := searchOne(ctx, doc, "1", Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Search() error = %v, want context.Canceled", err)
	}
}
