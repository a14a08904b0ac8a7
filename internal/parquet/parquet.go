// Package parquet exposes the rows of a Parquet file as value roots, decoding
// one row group at a time on demand.
package parquet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/value"
)

// DefaultBatchSize is the number of rows decoded per Arrow record.
const DefaultBatchSize = 4096

type Options struct {
	BatchSize int64
	// Parallel decodes the columns of a row group concurrently.
	Parallel bool
}

type rowGroup struct {
	once sync.Once
	rows []value.Value
	err  error
}

// Source provides the rows of a Parquet file. Each row group is decoded the
// first time one of its rows is requested and cached afterwards. It is safe
// for concurrent use.
type Source struct {
	reader  *pqarrow.FileReader
	schema  *arrow.Schema
	starts  []int
	total   int
	groups  []rowGroup
	readMu  sync.Mutex
	columns []string
	decoded atomic.Int32
}

// Open reads the footer and schema of a Parquet file held in memory.
func Open(data []byte, opts Options) (*Source, error) {
	rdr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, docerr.Wrap(docerr.ParseError, err, "parquet footer")
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{
		Parallel:  opts.Parallel,
		BatchSize: batch,
	}, memory.DefaultAllocator)
	if err != nil {
		return nil, docerr.Wrap(docerr.ParseError, err, "parquet schema")
	}

	schema, err := fr.Schema()
	if err != nil {
		return nil, docerr.Wrap(docerr.ParseError, err, "parquet schema")
	}

	s := &Source{
		reader: fr,
		schema: schema,
		groups: make([]rowGroup, rdr.NumRowGroups()),
		starts: make([]int, rdr.NumRowGroups()),
	}
	for i := range s.groups {
		s.starts[i] = s.total
		s.total += int(rdr.MetaData().RowGroup(i).NumRows())
	}
	for _, f := range schema.Fields() {
		s.columns = append(s.columns, f.Name)
	}
	return s, nil
}

// Len is the total number of rows.
func (s *Source) Len() int { return s.total }

// NumRowGroups is the number of row groups in the file.
func (s *Source) NumRowGroups() int { return len(s.groups) }

// Columns lists the top-level field names in schema order.
func (s *Source) Columns() []string { return s.columns }

// Root returns row i as an Object labeled with its row index.
func (s *Source) Root(i int) (value.Root, error) {
	if i < 0 || i >= s.total {
		return value.Root{}, docerr.New(docerr.Internal, "row %d out of range [0, %d)", i, s.total)
	}

	g := sort.Search(len(s.starts), func(g int) bool { return s.starts[g] > i }) - 1
	rows, err := s.rowGroup(g)
	if err != nil {
		return value.Root{}, err
	}
	return value.Root{Value: rows[i-s.starts[g]], Index: i, Indexed: true}, nil
}

// Roots decodes every row group.
func (s *Source) Roots() ([]value.Root, error) {
	roots := make([]value.Root, 0, s.total)
	for g := range s.groups {
		rows, err := s.rowGroup(g)
		if err != nil {
			return nil, err
		}
		for j, row := range rows {
			roots = append(roots, value.Root{Value: row, Index: s.starts[g] + j, Indexed: true})
		}
	}
	return roots, nil
}

// decodedGroups reports how many row groups have been decoded so far.
func (s *Source) decodedGroups() int { return int(s.decoded.Load()) }

func (s *Source) rowGroup(g int) ([]value.Value, error) {
	group := &s.groups[g]
	group.once.Do(func() {
		group.rows, group.err = s.decodeRowGroup(g)
		s.decoded.Add(1)
	})
	return group.rows, group.err
}

func (s *Source) decodeRowGroup(g int) ([]value.Value, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	rr, err := s.reader.GetRecordReader(context.Background(), nil, []int{g})
	if err != nil {
		return nil, docerr.Wrap(docerr.ParseError, err, "row group %d", g)
	}
	defer rr.Release()

	rows := make([]value.Value, 0, s.reader.ParquetReader().MetaData().RowGroup(g).NumRows())
	for rr.Next() {
		rec := rr.Record()
		for r := 0; r < int(rec.NumRows()); r++ {
			row, err := recordRow(rec, r)
			if err != nil {
				return nil, &docerr.Error{
					Kind:   docerr.ParseError,
					Row:    s.starts[g] + len(rows),
					HasRow: true,
					Err:    err,
				}
			}
			rows = append(rows, row)
		}
	}
	if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, docerr.Wrap(docerr.ParseError, err, "row group %d", g)
	}
	return rows, nil
}

func recordRow(rec arrow.Record, r int) (value.Value, error) {
	obj := value.NewObjectBuilder(int(rec.NumCols()))
	for c := 0; c < int(rec.NumCols()); c++ {
		v, err := convert(rec.Column(c), r)
		if err != nil {
			return value.Value{}, err
		}
		obj.Set(rec.ColumnName(c), v)
	}
	return obj.Build(), nil
}
