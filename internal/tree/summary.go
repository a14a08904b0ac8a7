package tree

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/jacoelho/treeview/internal/value"
)

// DefaultPreviewLen is the number of runes of a string shown in a summary.
const DefaultPreviewLen = 50

// Summary is the one-line preview of a collapsed node.
func Summary(v value.Value, previewLen int) string {
	switch v.Kind() {
	case value.Object:
		return "Object{" + strconv.Itoa(v.Len()) + "}"
	case value.Array:
		return "Array[" + strconv.Itoa(v.Len()) + "]"
	case value.String:
		s := v.Str()
		if previewLen > 0 {
			count := 0
			for i := range s {
				if count == previewLen {
					return `"` + s[:i] + `"...`
				}
				count++
			}
		}
		return `"` + s + `"`
	default:
		return v.Text()
	}
}

// Literal is the full display form of a value: strings verbatim, anything
// else as indented JSON.
func Literal(v value.Value) string {
	if v.Kind() == value.String {
		return v.Str()
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, value.AppendJSON(nil, v), "", "  "); err != nil {
		return string(value.AppendJSON(nil, v))
	}
	return buf.String()
}
