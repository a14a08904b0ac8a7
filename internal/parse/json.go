package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/stack"
	"github.com/jacoelho/treeview/internal/value"
)

type jsonFrame struct {
	object  *value.ObjectBuilder
	items   []value.Value
	key     string
	haveKey bool
}

func (f *jsonFrame) add(v value.Value) {
	if f.object != nil {
		f.object.Set(f.key, v)
		f.haveKey = false
		return
	}
	f.items = append(f.items, v)
}

func (f *jsonFrame) build() value.Value {
	if f.object != nil {
		return f.object.Build()
	}
	return value.NewArray(f.items)
}

// JSON decodes exactly one JSON value. Number literals are kept verbatim and
// a repeated key replaces the earlier value in its original position.
func JSON(data []byte, opts Options) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	limit := opts.maxDepth()
	frames := stack.New[jsonFrame](16)

	for {
		tok, err := dec.Token()
		if err != nil {
			return value.Value{}, jsonError(data, err)
		}

		var v value.Value
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				if frames.Size() >= limit {
					return value.Value{}, depthError(limit)
				}
				frame := jsonFrame{}
				if t == '{' {
					frame.object = value.NewObjectBuilder(4)
				}
				frames.Push(frame)
				continue
			default:
				frame, _ := frames.Pop()
				v = frame.build()
			}
		case string:
			if top := frames.PeekRef(); top != nil && top.object != nil && !top.haveKey {
				top.key, top.haveKey = t, true
				continue
			}
			v = value.NewString(t)
		case json.Number:
			lit := string(t)
			v = value.NewNumber(lit, value.IsIntLiteral(lit))
		case bool:
			v = value.NewBool(t)
		case nil:
			v = value.NewNull()
		}

		top := frames.PeekRef()
		if top == nil {
			if err := checkTrailing(data, dec.InputOffset()); err != nil {
				return value.Value{}, err
			}
			return v, nil
		}
		top.add(v)
	}
}

func checkTrailing(data []byte, offset int64) error {
	rest := data[offset:]
	trimmed := bytes.TrimLeft(rest, " \t\r\n")
	if len(trimmed) == 0 {
		return nil
	}
	line, col := docerr.LineCol(data, offset+int64(len(rest)-len(trimmed)))
	return docerr.At(line, col, "unexpected data after top-level value")
}

// jsonError positions a decoder failure. Decoder offsets are relative to
// the value being read, so the input is rescanned to locate the error.
func jsonError(data []byte, err error) error {
	end := func(msg string) error {
		line, col := docerr.LineCol(data, int64(len(data)))
		return docerr.At(line, col, "%s", msg)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return end("unexpected end of input")
	}

	var raw json.RawMessage
	var syntaxErr *json.SyntaxError
	if !errors.As(json.Unmarshal(data, &raw), &syntaxErr) {
		return docerr.Wrap(docerr.ParseError, err, "json")
	}
	if strings.HasPrefix(syntaxErr.Error(), "unexpected end") {
		return end("unexpected end of input")
	}

	// Offset counts the offending byte.
	line, col := docerr.LineCol(data, max(syntaxErr.Offset-1, 0))
	return docerr.At(line, col, "%s", syntaxErr.Error())
}

// JSONLines parses one JSON value per non-blank line. Each value becomes a
// root labeled with its 0-based line index. The first malformed line fails
// the whole input.
func JSONLines(data []byte, opts Options) ([]value.Root, error) {
	var roots []value.Root
	index := 0
	for line := range bytes.SplitSeq(data, []byte{'\n'}) {
		lineNo := index
		index++

		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		v, err := JSON(line, opts)
		if err != nil {
			var derr *docerr.Error
			if errors.As(err, &derr) && derr.Kind == docerr.ParseError {
				located := *derr
				located.Line = lineNo + 1
				return nil, &located
			}
			return nil, err
		}
		roots = append(roots, value.Root{Value: v, Index: lineNo, Indexed: true})
	}
	return roots, nil
}
