package search

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

// matcher finds the first occurrence of a query in a string and reports its
// byte span.
type matcher interface {
	index(s string) (start, end int)
}

type exactMatcher string

func (m exactMatcher) index(s string) (int, int) {
	i := strings.Index(s, string(m))
	if i < 0 {
		return -1, -1
	}
	return i, i + len(m)
}

// foldMatcher compares under Unicode case folding. The collator also skips
// default-ignorable code points such as soft hyphens, so every candidate is
// confirmed with strings.EqualFold to keep case the only difference.
type foldMatcher struct {
	query   string
	pattern *search.Pattern
}

func newFoldMatcher(query string) foldMatcher {
	m := search.New(language.Und, search.IgnoreCase)
	return foldMatcher{query: query, pattern: m.CompileString(query)}
}

func (m foldMatcher) index(s string) (int, int) {
	for offset := 0; offset < len(s); {
		start, end := m.pattern.IndexString(s[offset:])
		if start < 0 {
			return -1, -1
		}
		start, end = start+offset, end+offset
		if e := m.confirm(s, start, end); e >= 0 {
			return start, e
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return -1, -1
}

// confirm returns the shortest end within [start, end] at which s[start:]
// equals the query under simple case folding, or -1.
func (m foldMatcher) confirm(s string, start, end int) int {
	for e := start; e <= end; {
		if strings.EqualFold(s[start:e], m.query) {
			return e
		}
		if e == end {
			break
		}
		_, size := utf8.DecodeRuneInString(s[e:])
		e += size
	}
	return -1
}

func newMatcher(query string, caseSensitive bool) matcher {
	if caseSensitive {
		return exactMatcher(query)
	}
	return newFoldMatcher(query)
}
