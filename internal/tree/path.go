package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID identifies a node within a Document. The high 32 bits hold the
// position of the forest root, the low 32 bits the pre-order position of
// the node inside that root.
type NodeID uint64

// NoParent is the parent of every forest root.
const NoParent NodeID = ^NodeID(0)

const maxLocal = 1<<32 - 1

func MakeID(root, local int) NodeID {
	return NodeID(uint64(root)<<32 | uint64(uint32(local)))
}

func (id NodeID) Root() int  { return int(uint64(id) >> 32) }
func (id NodeID) Local() int { return int(uint32(id)) }

func (id NodeID) String() string {
	if id == NoParent {
		return "none"
	}
	return strconv.Itoa(id.Root()) + ":" + strconv.Itoa(id.Local())
}

// ParseNodeID is the inverse of NodeID.String.
func ParseNodeID(s string) (NodeID, error) {
	if s == "none" {
		return NoParent, nil
	}
	rootText, localText, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("node id %q: missing ':'", s)
	}
	root, err := strconv.ParseUint(rootText, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("node id %q: %w", s, err)
	}
	local, err := strconv.ParseUint(localText, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("node id %q: %w", s, err)
	}
	return NodeID(root<<32 | local), nil
}

func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *NodeID) UnmarshalText(text []byte) error {
	v, err := ParseNodeID(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Key labels a node: an object member name or an array/forest index.
type Key struct {
	Name    string
	Index   int
	IsIndex bool
}

// Label is the display form of the key: the member name or [i].
func (k Key) Label() string {
	if k.IsIndex {
		return "[" + strconv.Itoa(k.Index) + "]"
	}
	return k.Name
}

// Path is the sequence of keys from a forest root to a node. A labeled
// root contributes its index as the first key.
type Path []Key

// String renders a JSONPath-like locator such as $.items[0]['a b'].
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, k := range p {
		if k.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(k.Index))
			b.WriteByte(']')
			continue
		}
		if isIdentifier(k.Name) {
			b.WriteByte('.')
			b.WriteString(k.Name)
			continue
		}
		b.WriteString("['")
		for _, r := range k.Name {
			switch r {
			case '\'', '\\':
				b.WriteByte('\\')
				b.WriteRune(r)
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			case '\r':
				b.WriteString(`\r`)
			default:
				b.WriteRune(r)
			}
		}
		b.WriteString("']")
	}
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
