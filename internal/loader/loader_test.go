package loader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/format"
	"github.com/jacoelho/treeview/internal/tree"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func lz4Bytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func parquetBytes(t *testing.T, rows int) []byte {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	for i := range rows {
		b.Field(0).(*array.Int64Builder).Append(int64(i))
	}
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	props := pq.NewWriterProperties(pq.WithMaxRowGroupLength(4))
	w, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// dump renders every node as "path=summary" in walk order.
func dump(t *testing.T, doc *tree.Document) []string {
	t.Helper()

	var out []string
	require.NoError(t, doc.Walk(func(n tree.Node) error {
		p, err := doc.Path(n.ID)
		if err != nil {
			return err
		}
		out = append(out, p.String()+"="+n.Summary)
		return nil
	}))
	return out
}

func TestLoadFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name   string
		data   []byte
		format format.Format
		roots  int
	}{
		{name: "a.json", data: []byte(`{"a":[1,2]}`), format: format.JSON, roots: 1},
		{name: "a.jsonl", data: []byte("{\"a\":1}\n{\"a\":2}\n"), format: format.JSONL, roots: 2},
		{name: "a.yaml", data: []byte("a: 1\n---\nb: 2\n"), format: format.YAML, roots: 2},
		{name: "noext", data: []byte(`[true]`), format: format.JSON, roots: 1},
		{name: "rows.parquet", data: parquetBytes(t, 3), format: format.Parquet, roots: 3},
	}

	l := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := l.Load(context.Background(), writeFile(t, dir, tt.name, tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.format, doc.Format)
			assert.Equal(t, tt.roots, doc.Len())
			assert.Equal(t, tt.name, doc.Name)
		})
	}
}

func TestLoadCompressed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plain := []byte("items:\n  - id: 1\n    tags: [x, y]\n  - id: 2\n")
	l := New(Options{})

	want, err := l.Load(context.Background(), writeFile(t, dir, "plain.yaml", plain))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "doc.yaml.gz", data: gzipBytes(t, plain)},
		{name: "doc.yaml.zst", data: zstdBytes(t, plain)},
		{name: "doc.yaml.lz4", data: lz4Bytes(t, plain)},
		{name: "doc.yaml", data: zstdBytes(t, plain)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := l.Load(context.Background(), writeFile(t, dir, tt.name, tt.data))
			require.NoError(t, err)
			assert.Equal(t, format.YAML, doc.Format)
			assert.Equal(t, dump(t, want), dump(t, doc))
		})
	}
}

func TestDetectCompression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want Compression
	}{
		{name: "a.json.GZ", want: Gzip},
		{name: "a.json.zstd", want: Zstd},
		{name: "a.lz4", want: LZ4},
		{name: "a", data: []byte{0x1f, 0x8b, 0x08}, want: Gzip},
		{name: "a", data: []byte{0x28, 0xb5, 0x2f, 0xfd, 0}, want: Zstd},
		{name: "a", data: []byte{0x04, 0x22, 0x4d, 0x18}, want: LZ4},
		{name: "a.json", data: []byte(`{}`), want: None},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectCompression(tt.name, tt.data), "DetectCompression(%q)", tt.name)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		opts Options
		want error
	}{
		{
			name: "missing",
			path: filepath.Join(dir, "missing.json"),
			want: docerr.ErrIO,
		},
		{
			name: "directory",
			path: dir,
			want: docerr.ErrIO,
		},
		{
			name: "file too large",
			path: writeFile(t, dir, "big.json", []byte(`[1,2,3,4,5,6,7,8,9]`)),
			opts: Options{MaxInputBytes: 8},
			want: docerr.ErrLimit,
		},
		{
			name: "decompressed too large",
			path: writeFile(t, dir, "bomb.json.gz", gzipBytes(t, bytes.Repeat([]byte(" "), 4096))),
			opts: Options{MaxInputBytes: 1024},
			want: docerr.ErrLimit,
		},
		{
			name: "corrupt gzip",
			path: writeFile(t, dir, "bad.json.gz", []byte("not gzip")),
			want: docerr.ErrIO,
		},
		{
			name: "syntax",
			path: writeFile(t, dir, "bad.json", []byte(`{"a":}`)),
			want: docerr.ErrParse,
		},
		{
			name: "binary",
			path: writeFile(t, dir, "blob", []byte{0xff, 0xfe, 0x00, 0x01}),
			want: docerr.ErrUnsupported,
		},
		{
			name: "forced format",
			path: writeFile(t, dir, "text.json", []byte("a: 1\n")),
			opts: Options{Format: format.JSON},
			want: docerr.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.opts).Load(context.Background(), tt.path)
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestLoadParquetLazy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "rows.parquet", parquetBytes(t, 20))

	eager, err := New(Options{LazyThreshold: -1}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, eager.Lazy())
	assert.Equal(t, 20, eager.Materialized())

	lazy, err := New(Options{LazyThreshold: 10}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, lazy.Lazy())
	assert.Equal(t, 0, lazy.Materialized())

	assert.Equal(t, dump(t, eager), dump(t, lazy))
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "1.json", []byte(`{"n":1}`)),
		filepath.Join(dir, "missing.yaml"),
		writeFile(t, dir, "3.jsonl", []byte("1\n2\n3\n")),
		writeFile(t, dir, "4.yaml", []byte("x: y\n")),
	}

	results := New(Options{Workers: 3, RateLimit: 1000}).LoadAll(context.Background(), paths)
	require.Len(t, results, len(paths))

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}
	require.NoError(t, results[0].Err)
	assert.Equal(t, format.JSON, results[0].Doc.Format)
	require.ErrorIs(t, results[1].Err, docerr.ErrIO)
	assert.Nil(t, results[1].Doc)
	require.NoError(t, results[2].Err)
	assert.Equal(t, 3, results[2].Doc.Len())
	require.NoError(t, results[3].Err)
	assert.Equal(t, format.YAML, results[3].Doc.Format)
}

func TestLoadAllCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "a.json", []byte(`1`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(Options{}).LoadAll(ctx, []string{path, path})
	for _, r := range results {
		require.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestBytes(t *testing.T) {
	t.Parallel()

	doc, err := New(Options{}).Bytes("inline.yaml", []byte("k: [1, 2]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"$=Object{1}", "$.k=Array[2]", "$.k[0]=1", "$.k[1]=2"}, dump(t, doc))
}
