// Package docerr defines the error kinds reported while turning a file into a document.
package docerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a document error.
type Kind uint8

const (
	IOError Kind = iota + 1
	UnsupportedFormat
	ParseError
	EncodingError
	CycleDetected
	ResourceLimit
	Internal
)

var kindNames = [...]string{
	IOError:           "IOError",
	UnsupportedFormat: "UnsupportedFormat",
	ParseError:        "ParseError",
	EncodingError:     "EncodingError",
	CycleDetected:     "CycleDetected",
	ResourceLimit:     "ResourceLimit",
	Internal:          "Internal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name != "" && name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrIO          = errors.New("io error")
	ErrUnsupported = errors.New("unsupported format")
	ErrParse       = errors.New("parse error")
	ErrEncoding    = errors.New("encoding error")
	ErrCycle       = errors.New("cycle detected")
	ErrLimit       = errors.New("resource limit exceeded")
	ErrInternal    = errors.New("internal error")
)

// Sentinel is the error every *Error of kind k matches with errors.Is.
func (k Kind) Sentinel() error {
	switch k {
	case IOError:
		return ErrIO
	case UnsupportedFormat:
		return ErrUnsupported
	case ParseError:
		return ErrParse
	case EncodingError:
		return ErrEncoding
	case CycleDetected:
		return ErrCycle
	case ResourceLimit:
		return ErrLimit
	default:
		return ErrInternal
	}
}

// Error carries a kind and, where known, the position of the failure.
// Line and Column are 1-based; Row is the 0-based record index for
// row-oriented formats. Zero means unknown.
type Error struct {
	Kind   Kind
	Line   int
	Column int
	Row    int
	HasRow bool
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Sentinel().Error())
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	if e.HasRow {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind caused by err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// At returns a positioned ParseError.
func At(line, column int, format string, args ...any) *Error {
	return &Error{Kind: ParseError, Line: line, Column: column, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// LineCol converts a byte offset into a 1-based line and column.
// Columns count runes.
func LineCol(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, r := range string(data[:offset]) {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
