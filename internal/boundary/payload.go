package boundary

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/tree"
	"github.com/jacoelho/treeview/internal/value"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Payload is the wire form handed to hosts. Status is always the first
// field; exactly one of Document and Error is set.
type Payload struct {
	Status   string    `json:"status"`
	Document *Document `json:"document,omitempty"`
	Error    *Error    `json:"error,omitempty"`
}

// Document is the serialized forest, one record per root.
type Document struct {
	ID      string        `json:"id"`
	Format  string        `json:"format"`
	Name    string        `json:"name"`
	Roots   []tree.NodeID `json:"roots"`
	Records []Record      `json:"records"`
}

type Record struct {
	Root  tree.NodeID `json:"root"`
	Nodes []Node      `json:"nodes"`
}

// Node is one tree row. Text is present for scalars only.
type Node struct {
	ID       tree.NodeID   `json:"id"`
	Parent   *tree.NodeID  `json:"parent,omitempty"`
	Key      *string       `json:"key,omitempty"`
	Index    *int          `json:"index,omitempty"`
	Kind     string        `json:"kind"`
	Text     *string       `json:"text,omitempty"`
	Summary  string        `json:"summary"`
	Binary   bool          `json:"binary,omitempty"`
	Integer  bool          `json:"integer,omitempty"`
	Children []tree.NodeID `json:"children,omitempty"`
}

// Error describes a failed parse. It implements error and matches the
// docerr sentinel of its kind.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Row     *int   `json:"row,omitempty"`
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	k, ok := docerr.ParseKind(e.Kind)
	return ok && target == k.Sentinel()
}

// Encode serializes every root of doc, materializing lazy roots.
func Encode(doc *tree.Document) ([]byte, error) {
	out := &Document{
		ID:      doc.ID.String(),
		Format:  doc.Format.String(),
		Name:    doc.Name,
		Roots:   doc.Roots(),
		Records: make([]Record, 0, doc.Len()),
	}

	for root := range doc.Len() {
		rec := Record{Root: tree.MakeID(root, 0)}
		err := doc.WalkRoot(root, func(n tree.Node) error {
			children, err := doc.Children(n.ID)
			if err != nil {
				return err
			}
			w := wireNode(n, children)
			if n.Kind == value.Number {
				v, err := doc.Value(n.ID)
				if err != nil {
					return err
				}
				w.Integer = v.IsInt()
			}
			rec.Nodes = append(rec.Nodes, w)
			return nil
		})
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, rec)
	}

	return json.Marshal(Payload{Status: StatusOK, Document: out})
}

func wireNode(n tree.Node, children []tree.NodeID) Node {
	w := Node{
		ID:       n.ID,
		Kind:     n.Kind.String(),
		Summary:  n.Summary,
		Binary:   n.Binary,
		Children: children,
	}
	if n.Parent != tree.NoParent {
		parent := n.Parent
		w.Parent = &parent
	}
	if n.HasKey {
		if n.Key.IsIndex {
			index := n.Key.Index
			w.Index = &index
		} else {
			key := n.Key.Name
			w.Key = &key
		}
	}
	if !n.Kind.IsContainer() {
		text := n.Text
		w.Text = &text
	}
	return w
}

// EncodeError serializes err. Errors that carry no kind are reported as
// Internal.
func EncodeError(err error) []byte {
	e := &Error{
		Kind:    docerr.KindOf(err).String(),
		Message: err.Error(),
	}
	var de *docerr.Error
	if errors.As(err, &de) {
		e.Line, e.Column = de.Line, de.Column
		if de.HasRow {
			row := de.Row
			e.Row = &row
		}
	}

	data, mErr := json.Marshal(Payload{Status: StatusError, Error: e})
	if mErr != nil {
		return []byte(`{"status":"error","error":{"kind":"Internal","message":"unencodable error"}}`)
	}
	return data
}

// Decode parses a payload produced by Encode or EncodeError.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	switch p.Status {
	case StatusOK:
		if p.Document == nil {
			return nil, errors.New("decode payload: ok status without document")
		}
	case StatusError:
		if p.Error == nil {
			return nil, errors.New("decode payload: error status without error")
		}
	default:
		return nil, fmt.Errorf("decode payload: unknown status %q", p.Status)
	}
	return &p, nil
}

// Err returns the failure carried by the payload, nil on success.
func (p *Payload) Err() error {
	if p.Status == StatusError {
		return p.Error
	}
	return nil
}

// Value rebuilds the value of the i-th forest root.
func (d *Document) Value(i int) (value.Value, error) {
	if i < 0 || i >= len(d.Records) {
		return value.Value{}, fmt.Errorf("root %d out of range", i)
	}
	rec := d.Records[i]
	byID := make(map[tree.NodeID]*Node, len(rec.Nodes))
	for j := range rec.Nodes {
		byID[rec.Nodes[j].ID] = &rec.Nodes[j]
	}
	return rebuild(byID, rec.Root)
}

func rebuild(byID map[tree.NodeID]*Node, id tree.NodeID) (value.Value, error) {
	n, ok := byID[id]
	if !ok {
		return value.Value{}, fmt.Errorf("node %s missing from record", id)
	}

	switch n.Kind {
	case "array":
		items := make([]value.Value, 0, len(n.Children))
		for _, c := range n.Children {
			v, err := rebuild(byID, c)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.NewArray(items), nil
	case "object":
		b := value.NewObjectBuilder(len(n.Children))
		for _, c := range n.Children {
			child, ok := byID[c]
			if !ok || child.Key == nil {
				return value.Value{}, fmt.Errorf("member %s of %s has no key", c, id)
			}
			v, err := rebuild(byID, c)
			if err != nil {
				return value.Value{}, err
			}
			b.Set(*child.Key, v)
		}
		return b.Build(), nil
	}

	if n.Text == nil {
		return value.Value{}, fmt.Errorf("scalar %s has no text", id)
	}
	text := *n.Text
	switch n.Kind {
	case "null":
		return value.NewNull(), nil
	case "bool":
		return value.NewBool(text == "true"), nil
	case "number":
		if !value.IsNumberLiteral(text) {
			return value.Value{}, fmt.Errorf("node %s: bad number %q", id, text)
		}
		return value.NewNumber(text, n.Integer), nil
	case "string":
		if n.Binary {
			b, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
			if err != nil {
				return value.Value{}, fmt.Errorf("node %s: %w", id, err)
			}
			return value.NewBinary(b), nil
		}
		return value.NewString(text), nil
	default:
		return value.Value{}, fmt.Errorf("node %s: unknown kind %q", id, n.Kind)
	}
}
