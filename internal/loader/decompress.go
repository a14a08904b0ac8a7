package loader

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/jacoelho/treeview/internal/docerr"
)

// Compression is the container wrapped around an input file.
type Compression uint8

const (
	None Compression = iota
	Gzip
	Zstd
	LZ4
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// DetectCompression looks at the file suffix first and the leading magic
// bytes second.
func DetectCompression(name string, data []byte) Compression {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	}

	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4
	default:
		return None
	}
}

// decompress inflates data, failing once the output exceeds limit bytes.
// A limit of zero or less is unbounded.
func decompress(c Compression, data []byte, limit int64) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)
	switch c {
	case None:
		return data, nil
	case Gzip:
		var zr *gzip.Reader
		if zr, err = gzip.NewReader(bytes.NewReader(data)); err != nil {
			return nil, docerr.Wrap(docerr.IOError, err, "gzip header")
		}
		defer zr.Close()
		r = zr
	case Zstd:
		var zr *zstd.Decoder
		if zr, err = zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1)); err != nil {
			return nil, docerr.Wrap(docerr.IOError, err, "zstd header")
		}
		defer zr.Close()
		r = zr
	case LZ4:
		r = lz4.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}

	out, err := readLimited(r, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}
	return out, nil
}

// readLimited reads r to the end. Exceeding limit is a ResourceLimit error;
// any other failure is an IOError.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, docerr.Wrap(docerr.IOError, err, "read")
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, docerr.New(docerr.ResourceLimit, "input larger than %d bytes", limit)
	}
	return out, nil
}
