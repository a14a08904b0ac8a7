// Package value defines the format-neutral value model every parser produces.
package value

import (
	"encoding/hex"
	"strconv"
)

// Kind enumerates the variants of a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsContainer reports whether values of this kind have children.
func (k Kind) IsContainer() bool {
	return k == Array || k == Object
}

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable tagged union. The zero Value is null.
//
// Numbers keep the literal text they were read from so integers beyond
// 53 bits and decimals survive unchanged.
type Value struct {
	kind    Kind
	flag    bool // bool payload, integer flag for numbers, binary flag for strings
	text    string
	items   []Value
	members []Member
}

// Root is a top-level value of a forest together with its optional label.
type Root struct {
	Value   Value
	Index   int
	Indexed bool
}

func NewNull() Value { return Value{} }

func NewBool(b bool) Value { return Value{kind: Bool, flag: b} }

func NewString(s string) Value { return Value{kind: String, text: s} }

// NewBinary returns a string value holding bytes as 0x-prefixed lowercase hex.
func NewBinary(b []byte) Value {
	return Value{kind: String, text: "0x" + hex.EncodeToString(b), flag: true}
}

// NewNumber stores a numeric literal. The caller guarantees lit is a valid
// JSON number.
func NewNumber(lit string, isInt bool) Value {
	return Value{kind: Number, text: lit, flag: isInt}
}

func NewInt(n int64) Value { return NewNumber(strconv.FormatInt(n, 10), true) }

func NewUint(n uint64) Value { return NewNumber(strconv.FormatUint(n, 10), true) }

// NewFloat formats f with the shortest representation for the given bit size.
// Non-finite floats have no JSON number form and become strings.
func NewFloat(f float64, bitSize int) Value {
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !IsNumberLiteral(s) {
		return NewString(s)
	}
	return NewNumber(s, false)
}

func NewArray(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, items: items}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool { return v.kind == Bool && v.flag }

// IsInt reports whether a number was written without fraction or exponent.
func (v Value) IsInt() bool { return v.kind == Number && v.flag }

// IsBinary reports whether a string holds hex-encoded bytes.
func (v Value) IsBinary() bool { return v.kind == String && v.flag }

// Str returns the raw string of a String value.
func (v Value) Str() string {
	if v.kind != String {
		return ""
	}
	return v.text
}

// Literal returns the source text of a Number value.
func (v Value) Literal() string {
	if v.kind != Number {
		return ""
	}
	return v.text
}

// Text is the display text of a scalar; containers return "".
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		if v.flag {
			return "true"
		}
		return "false"
	case Number, String:
		return v.text
	default:
		return ""
	}
}

// Len is the number of children of a container.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.members)
	default:
		return 0
	}
}

// Items returns the elements of an Array. The slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.items
}

// Members returns the ordered members of an Object. The slice must not be modified.
func (v Value) Members() []Member {
	if v.kind != Object {
		return nil
	}
	return v.members
}

// Get looks up a member by key.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.Members() {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Equal reports structural equality including key order.
func Equal(a, b Value) bool {
	if a.kind != b.kind || a.flag != b.flag || a.text != b.text {
		return false
	}
	switch a.kind {
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
	case Object:
		if len(a.members) != len(b.members) {
			return false
		}
		for i := range a.members {
			if a.members[i].Key != b.members[i].Key || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}
	}
	return true
}

// IsNumberLiteral reports whether s follows the JSON number grammar.
func IsNumberLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	if i >= len(s) {
		return false
	}
	switch {
	case s[i] == '0':
		i++
	case s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	return i == len(s)
}

// IsIntLiteral reports whether a valid number literal has no fraction or exponent.
func IsIntLiteral(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', 'e', 'E':
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
