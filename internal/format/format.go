// Package format classifies input files as one of the supported data formats.
package format

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jacoelho/treeview/internal/docerr"
)

type Format uint8

const (
	Unknown Format = iota
	JSON
	JSONL
	YAML
	Parquet
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case JSONL:
		return "jsonl"
	case YAML:
		return "yaml"
	case Parquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// Parse resolves a format name as produced by String. Aliases such as
// "yml" and "ndjson" are accepted.
func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "jsonl", "ndjson":
		return JSONL, nil
	case "yaml", "yml":
		return YAML, nil
	case "parquet":
		return Parquet, nil
	default:
		return Unknown, docerr.New(docerr.UnsupportedFormat, "unknown format %q", s)
	}
}

// IsText reports whether the format is read as UTF-8 text.
func (f Format) IsText() bool {
	return f == JSON || f == JSONL || f == YAML
}

// ParquetMagic marks both ends of a Parquet file.
var ParquetMagic = []byte("PAR1")

var compressionSuffixes = []string{".gz", ".gzip", ".zst", ".zstd", ".lz4"}

// FromName classifies by file extension only. Compression suffixes are ignored.
func FromName(name string) Format {
	base := strings.ToLower(filepath.Base(name))
	for _, suffix := range compressionSuffixes {
		if strings.HasSuffix(base, suffix) {
			base = strings.TrimSuffix(base, suffix)
			break
		}
	}

	switch filepath.Ext(base) {
	case ".json":
		return JSON
	case ".jsonl", ".ndjson":
		return JSONL
	case ".yaml", ".yml":
		return YAML
	case ".parquet":
		return Parquet
	default:
		return Unknown
	}
}

// Detect classifies content using the extension of name first and the
// content itself second.
func Detect(name string, data []byte) (Format, error) {
	byName := FromName(name)

	if byName == Parquet || byName == Unknown && IsParquet(data) {
		if !IsParquet(data) {
			return Unknown, docerr.New(docerr.UnsupportedFormat, "%s: missing parquet magic", name)
		}
		return Parquet, nil
	}

	text, err := CheckText(data)
	if err != nil {
		if byName == Unknown {
			return Unknown, docerr.Wrap(docerr.UnsupportedFormat, err, "%s: binary content", name)
		}
		return Unknown, err
	}

	switch byName {
	case JSON:
		if !isSingleJSON(text) && isJSONLines(text) {
			return JSONL, nil
		}
		return JSON, nil
	case JSONL, YAML:
		return byName, nil
	}

	switch {
	case isSingleJSON(text):
		return JSON, nil
	case isJSONLines(text):
		return JSONL, nil
	case len(bytes.TrimSpace(text)) > 0:
		return YAML, nil
	default:
		return Unknown, docerr.New(docerr.UnsupportedFormat, "%s: empty content", name)
	}
}

// IsParquet checks for the magic at both ends of data.
func IsParquet(data []byte) bool {
	return len(data) >= 2*len(ParquetMagic) &&
		bytes.HasPrefix(data, ParquetMagic) &&
		bytes.HasSuffix(data, ParquetMagic)
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// CheckText strips a UTF-8 byte order mark and validates the remainder as
// UTF-8. Other byte order marks are rejected.
func CheckText(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF32LE), bytes.HasPrefix(data, bomUTF32BE):
		return nil, docerr.New(docerr.EncodingError, "UTF-32 input is not supported")
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		return nil, docerr.New(docerr.EncodingError, "UTF-16 input is not supported")
	}

	if !utf8.Valid(data) {
		line, col := invalidPosition(data)
		return nil, &docerr.Error{Kind: docerr.EncodingError, Line: line, Column: col, Msg: "invalid UTF-8"}
	}
	return data, nil
}

func invalidPosition(data []byte) (int, int) {
	line, col := 1, 1
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return line, col
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i += size
	}
	return line, col
}

func isSingleJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && json.Valid(trimmed)
}

// isJSONLines requires at least one non-blank line and every non-blank
// line to hold one JSON value.
func isJSONLines(data []byte) bool {
	seen := 0
	for line := range bytes.SplitSeq(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return false
		}
		seen++
	}
	return seen > 0
}
