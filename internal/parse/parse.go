// Package parse turns JSON, JSON Lines and YAML text into value forests.
package parse

import (
	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/format"
	"github.com/jacoelho/treeview/internal/value"
)

const (
	// DefaultMaxDepth bounds container nesting when Options leaves it unset.
	DefaultMaxDepth = 1024
	// DefaultMaxNodes bounds the values a YAML stream may expand to through
	// aliases when Options leaves it unset.
	DefaultMaxNodes = 10_000_000
)

type Options struct {
	MaxDepth int
	MaxNodes int64
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o Options) maxNodes() int64 {
	if o.MaxNodes <= 0 {
		return DefaultMaxNodes
	}
	return o.MaxNodes
}

// Parse dispatches to the parser of a text format. Input is validated as
// UTF-8 and a leading byte order mark is removed.
func Parse(f format.Format, data []byte, opts Options) ([]value.Root, error) {
	if !f.IsText() {
		return nil, docerr.New(docerr.UnsupportedFormat, "%s is not a text format", f)
	}

	text, err := format.CheckText(data)
	if err != nil {
		return nil, err
	}

	switch f {
	case format.JSON:
		v, err := JSON(text, opts)
		if err != nil {
			return nil, err
		}
		return []value.Root{{Value: v}}, nil
	case format.JSONL:
		return JSONLines(text, opts)
	default:
		return YAML(text, opts)
	}
}

func depthError(limit int) error {
	return docerr.New(docerr.ResourceLimit, "nesting deeper than %d levels", limit)
}
